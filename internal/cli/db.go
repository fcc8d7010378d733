package cli

import (
	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// openStore opens the configured database. The daemon and the CLI share it;
// WAL mode and the busy timeout keep concurrent access safe.
func openStore() (*store.Store, func(), error) {
	db, err := store.NewDB(config.ExpandPath(appConfig.Storage.Path))
	if err != nil {
		return nil, nil, err
	}
	return store.NewStore(db), func() { _ = db.Close() }, nil
}
