package transport

import (
	"context"

	"github.com/luki/roaster/internal/roast"
	"github.com/luki/roaster/internal/store"
)

// CSV appends batches to the daily telemetry files of a local store.
type CSV struct {
	store   *store.DiskStore
	session string
}

func NewCSV(ds *store.DiskStore, session string) *CSV {
	return &CSV{store: ds, session: session}
}

func (c *CSV) Send(_ context.Context, batch []roast.Record) error {
	return c.store.Write(c.session, batch)
}

func (c *CSV) Close() error {
	return c.store.Close()
}
