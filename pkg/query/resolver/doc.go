// Package resolver looks up dotted paths inside records.
//
// Two implementations are provided:
//
//   - MapResolver walks Go values (map[string]interface{}, other string-keyed
//     maps, slices, structs). It is the default.
//   - JSONResolver reads raw JSON bytes with gjson, so a document can be
//     matched without unmarshalling it.
//
// A missing segment is reported with an error matching ErrNotFound. The
// engine treats that as "does not match" rather than as a failure.
//
//	record := map[string]interface{}{"data": map[string]interface{}{"weather": "Rainy"}}
//	v, err := resolver.Default.Resolve(record, "data.weather") // "Rainy", nil
//	_, err = resolver.Default.Resolve(record, "data.wind")     // resolver.IsNotFound(err) == true
package resolver
