// Package join attaches related records from other collections onto a set of
// already fetched parent records.
//
// An association is described by one or two chained Instructions. Classify
// turns them into a Strategy:
//
//   - HasFK: the parent holds the key of a single child.
//   - ViaFK: children hold the key of their parent.
//   - ViaJunctor: a junction collection holds keys of both sides.
//
// A Resolver fetches the children of every parent with a separate query, so
// that sort, skip and limit of the association criteria apply to each
// parent's subset. Queries run concurrently. Parents are only modified after
// every query succeeded.
package join
