// Package mmfile provides platform-specific helpers for mapping container
// files into memory and syncing written files.
package mmfile
