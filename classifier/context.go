package classifier

import (
	"context"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/warehouse"
)

// ContextSource is the part of the store that run context is read from
type ContextSource interface {
	TableInfo(ctx context.Context) (*warehouse.TableInfo, error)
	EventVolume(ctx context.Context, lookbackDays int) (warehouse.ResultSet, error)
}

// GatherContext reads table stats and, when lookbackDays > 0, the recent
// daily event volume.
func GatherContext(ctx context.Context, src ContextSource, lookbackDays int) (*RunContext, error) {
	info, err := src.TableInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "gather table info")
	}
	rc := &RunContext{Table: info}

	if lookbackDays > 0 {
		volume, err := src.EventVolume(ctx, lookbackDays)
		if err != nil {
			return nil, errors.Wrap(err, "gather event volume")
		}
		rc.EventVolume = volume
	}
	return rc, nil
}
