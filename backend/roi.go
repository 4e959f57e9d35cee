package backend

import (
	"context"
)

// LookupROI asks the engine for the region of interest of framePath with
// respect to the query string. An empty ROI means the engine has none.
// ROI answers may omit the success flag, so only an explicit error message
// counts as a failure.
func LookupROI(ctx context.Context, c Client, framePath, queryString string) (string, error) {
	var reply ROIReply
	req := ROIRequest{Func: FuncGetROI, FramePath: framePath, QueryString: queryString}
	if err := c.Send(ctx, req, &reply); err != nil {
		return "", err
	}
	if !reply.Success && reply.ErrMsg != "" {
		return "", reply.Err(FuncGetROI)
	}
	return string(reply.ROI), nil
}
