package backend

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/visor/model"
)

// Engine functions.
const (
	FuncPrepareQuery = "prepareQuery"
	FuncTrain        = "train"
	FuncRank         = "rank"
	FuncGetRanking   = "getRanking"
	FuncReleaseQuery = "releaseQuery"
	FuncGetROI       = "getRoi"
)

// MaxROICoordinates is the number of list coordinates kept from an ROI
// answer: five corners of a closed rectangle.
const MaxROICoordinates = 10

// PrepareRequest registers a query with the engine. For image queries the
// engine downloads and processes the input during this call.
type PrepareRequest struct {
	Func        string `json:"func"`
	QueryID     string `json:"query_id"`
	QueryType   string `json:"query_type"`
	QueryString string `json:"query_string"`
	Dataset     string `json:"dataset"`
	ParentID    string `json:"parent_id,omitempty"`
}

// QueryRequest addresses a prepared query.
type QueryRequest struct {
	Func    string `json:"func"`
	QueryID string `json:"query_id"`
}

// RankedItem is one entry of a ranking answer.
type RankedItem struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
	ROI   ROI     `json:"roi,omitempty"`
}

// RankingReply is the answer to getRanking.
type RankingReply struct {
	Reply
	Ranking []RankedItem `json:"ranking"`
}

// Items converts the ranking into result items, preserving order.
func (r RankingReply) Items() []model.Item {
	items := make([]model.Item, len(r.Ranking))
	for i, it := range r.Ranking {
		items[i] = model.Item{Path: it.Path, Score: it.Score, ROI: string(it.ROI)}
	}
	return items
}

// ROIRequest asks for the region of interest of a frame.
type ROIRequest struct {
	Func        string `json:"func"`
	FramePath   string `json:"frame_path"`
	QueryString string `json:"query_string,omitempty"`
}

// ROIReply is the answer to getRoi.
type ROIReply struct {
	Reply
	ROI ROI `json:"roi"`
}

// ROI is a region of interest in the underscore separated form
// x1_y1_x2_y1_x2_y2_x1_y2_x1_y1. Engines send either that string or a list
// of coordinates; lists are truncated to MaxROICoordinates.
type ROI string

// UnmarshalJSON accepts a string, a list of numbers or strings, or null.
func (r *ROI) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := gojson.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ROI(s)
		return nil
	}

	var coords []any
	if err := gojson.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("backend: roi must be a string or a list: %w", err)
	}
	if len(coords) > MaxROICoordinates {
		coords = coords[:MaxROICoordinates]
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		switch v := c.(type) {
		case string:
			parts[i] = v
		case float64:
			parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Errorf("backend: unsupported roi coordinate %v", c)
		}
	}
	*r = ROI(strings.Join(parts, "_"))
	return nil
}
