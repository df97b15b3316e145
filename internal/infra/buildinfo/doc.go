// Package buildinfo reports the version of the MeshBBS binaries.
package buildinfo
