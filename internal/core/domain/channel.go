package domain

import "strings"

// Channel is an entry in the channel directory. URL usually carries the
// channel's pre-shared key, so it is treated as sensitive in logs.
type Channel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Validate checks the fields a store needs before insertion.
func (c *Channel) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidArgument.WithDetails("channel name is required")
	}
	return nil
}
