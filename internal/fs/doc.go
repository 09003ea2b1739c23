// Package fs abstracts the file operations the local blob store needs, so that
// tests can inject I/O failures.
//
// Production code uses [Default] (the os package). Tests wrap it in a
// [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".db", fs.Fault{FailOnRename: true})
//
// The helpers [ReadFile] and [WriteFileAtomic] work against any FileSystem.
// WriteFileAtomic writes a temp file in the target directory, syncs it and
// renames it over the target, so readers never observe a partial file.
package fs
