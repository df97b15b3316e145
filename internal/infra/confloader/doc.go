// Package confloader loads configuration for the MeshBBS binaries.
//
// Load layers a YAML file and MESHBBS_ environment variables over whatever
// the target struct already holds, using koanf. WatchFile reports edits to
// the file so the server can re-run Load and apply what may change live.
package confloader
