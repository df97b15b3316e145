// Package sqlstore implements service.Repository on SQLite.
//
// It uses the pure-Go modernc.org/sqlite driver through database/sql with a
// single open connection. The schema keeps the bulletins, mail and channels
// tables of earlier MeshBBS databases so existing files open unchanged.
package sqlstore
