package kernel

import (
	"context"

	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

func init() {
	logx.RegisterContextFields(func(ctx context.Context) logx.Fields {
		if id := RequestIDFromContext(ctx); id != "" {
			return logx.Fields{"request_id": id}
		}
		return nil
	})
}
