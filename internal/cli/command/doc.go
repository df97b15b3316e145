// Package command defines the meshbbs-cli commands using urfave/cli/v2.
//
// Database commands (bulletin, mail, channel, export, import) open the
// storage engine named by the server configuration file and act on it
// directly. Changes made this way are local and are not replicated to
// peers. The status command talks to a running node over its admin HTTP
// listener.
package command
