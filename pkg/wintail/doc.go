// Package wintail extracts wins from a game server logfile that is only
// reachable as a flat byte stream over HTTP.
//
// This package allows you to:
//   - Poll a remote logfile and get only the wins appended since the last poll
//   - Resume across restarts through a durable PositionStore
//   - Parse local logfiles in batch
//
// # Basic Usage
//
// A Tailer is built from explicitly constructed collaborators:
//
//	store, err := position.Open(ctx, cfg.Store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	t, err := wintail.New(store, fetcher.New(fetcher.Options{}), resolver,
//	    wintail.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	wins, err := t.Poll(ctx, "webzook")
//	if errors.Is(err, wintail.ErrPollFailed) {
//	    // offset untouched, the next poll retries the same range
//	}
//	for _, w := range wins {
//	    fmt.Println(w.Value("name"), w.Value("tmsg"))
//	}
//
// # Offsets
//
// The stored offset is the number of bytes consumed by the last completed
// poll. A poll with no prior offset starts WindowBytes before the end of the
// log instead of replaying history. The offset is committed only after the
// new bytes were fetched, so failures never lose data.
//
// Polls for one source must not overlap; use one Follower per source or a
// lock keyed by source ID.
package wintail
