package visor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/visor"
	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// Example demonstrates submitting a query, waiting for it and reading a page.
func Example() {
	reg := query.NewRegistry(
		[]query.Engine{{Name: "instances", FullName: "Instances"}},
		map[string]string{"mydataset": "Any dataset"},
	)

	// A runner normally talks to a backend engine; this one ranks 50 frames.
	runner := execution.RunnerFunc(func(_ context.Context, _ execution.Job, p execution.Progress) ([]model.Item, error) {
		if err := p.Advance(execution.Ranking); err != nil {
			return nil, err
		}
		items := make([]model.Item, 50)
		for i := range items {
			items[i] = model.Item{Path: fmt.Sprintf("video/frame%02d.jpg", i), Score: float64(50 - i)}
		}
		return items, nil
	})

	svc, err := visor.New(runner, reg)
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	ctx := context.Background()
	id, err := svc.Submit(ctx, query.Raw{Spec: "Cat", Engine: "instances"})
	if err != nil {
		log.Fatal(err)
	}

	st, err := svc.Wait(ctx, id)
	if err != nil {
		log.Fatal(err)
	}

	pg, err := svc.FetchPage(ctx, id, 2, 10)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(st.State, pg.Number, pg.Count, pg.Items[0].Desc)
	// Output: results_ready 2 5 frame10.jpg
}
