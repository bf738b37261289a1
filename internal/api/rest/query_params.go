package rest

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-name-registry/internal/api/shared/constants"
)

// ListNamesQueryParams holds query parameters for GET /names
type ListNamesQueryParams struct {
	Start int  `form:"start,default=0"`
	End   *int `form:"end"`
}

// ParseListNamesQuery parses query parameters for GET /names.
// A missing end selects a default page and the window is capped at MAX_PAGE_SIZE.
func ParseListNamesQuery(c *gin.Context) (start, end int, err error) {
	var params ListNamesQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return 0, 0, err
	}
	if params.Start < 0 {
		return 0, 0, errors.New("start must not be negative")
	}

	start = params.Start
	end = start + constants.DEFAULT_PAGE_SIZE
	if params.End != nil {
		end = *params.End
	}

	// Cap window
	if end-start > constants.MAX_PAGE_SIZE {
		end = start + constants.MAX_PAGE_SIZE
	}
	return start, end, nil
}
