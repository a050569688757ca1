package extract

import (
	"context"
	"errors"
	"net"

	"github.com/fkoehler/gearharvest/models"
)

// classify maps a transport error onto the extraction error taxonomy. Anything
// that is not a recognizable timeout is reported as unexpected; non-2xx
// statuses never reach here, they are tagged http_status at the call site.
func classify(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorUnexpected
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorTimeout
	}
	return models.ErrorUnexpected
}
