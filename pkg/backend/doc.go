// Package backend persists the permission matrix and user registry as named
// YAML documents.
//
// The default FileBackend keeps one file per document and replaces files via a
// temp-file rename. Redis, S3 and SQL backends store the same YAML encoding so
// documents can move between them with the export and import commands.
//
// Example:
//
//	b, err := backend.New(ctx, backend.Config{Type: backend.TypeFile, Root: "/etc/permgate"})
//	if err != nil {
//		return err
//	}
//	defer backend.Close(b)
package backend
