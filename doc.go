// Package diskstore provides an embedded, schema-aware document store.
//
// A Datastore keeps one collection per registered model in memory and mirrors
// the full state to a single snapshot blob after every mutation. It answers
// structured queries (filter, sort, paginate, project) and populates
// associations across collections.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	ds, _ := diskstore.Open(ctx, "default", diskstore.WithDir("./data"))
//	defer ds.Close()
//
// Cloud mode:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("snapshots/"))
//	ds, _ := diskstore.Open(ctx, "default", diskstore.WithBlobStore(s3Store))
//
// # Collections
//
//	_ = ds.RegisterCollection(ctx, "user", schema.Schema{
//	    "id":    {Type: schema.TypeInteger, PrimaryKey: true, AutoIncrement: true},
//	    "email": {Type: schema.TypeString, Unique: true, Required: true},
//	})
//
//	u, _ := ds.Insert(ctx, "user", document.MustRecord(map[string]any{"email": "a@example.com"}))
//	fmt.Println(u["id"]) // 1
//
// # Queries
//
//	users, _ := ds.Find(ctx, "user", criteria.Criteria{
//	    Where: criteria.Gte("age", document.Int(30)),
//	    Sort:  []criteria.SortKey{{Field: "age", Direction: criteria.Asc}},
//	    Limit: 2,
//	})
//
// Criteria can also be parsed from decoded JSON with criteria.Parse.
//
// # Associations
//
// Join instructions are classified into a has-foreign-key, via-foreign-key or
// via-junction association and resolved with one child query per parent:
//
//	posts, _ := ds.Join(ctx, "post", criteria.Criteria{}, []join.Instruction{
//	    {Alias: "author", Parent: "post", ParentKey: "authorId", Child: "user", ChildKey: "id"},
//	})
//
// # Durability Model
//
// Every mutation returns only after the snapshot containing it was written.
// A failed write leaves the in-memory state unchanged. Snapshots are plain
// JSON by default; compression, encryption and alternative codecs wrap them
// in a small binary envelope that readers detect automatically.
//
// # Observability
//
// Operations report to a MetricsCollector (see metrics/prometheus for a
// Prometheus exporter) and to a slog based Logger. The diskstore command in
// cmd/diskstore inspects and converts snapshots on disk.
package diskstore
