// Package decision records the outcome of rule set evaluations.
//
// A Decision captures which rules matched a record, which failed, and a
// SHA-256 of the record's canonical JSON, so the record itself is never
// stored. Recorder writes decisions from a background worker. Backends live in
// the storage package and retention in the retention package.
//
//	store, err := storage.NewSQLiteStore(storage.DefaultSQLiteConfig())
//	if err != nil {
//	    return err
//	}
//	rec := decision.NewRecorder(store, nil)
//	defer rec.Close()
//
//	result, _ := rules.Evaluate(ctx, record)
//	rec.Record(ctx, result, record)
package decision
