// Package files locates lead exports on disk. A command given a directory
// instead of a file reads the newest export inside it.
//
//	discovery := files.NewDiscovery(".", validator)
//	path, err := discovery.ResolveInput("exports/")
package files
