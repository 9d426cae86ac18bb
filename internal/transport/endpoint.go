package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint describes where room connections go: the server base URL, the
// Origin header value, and the load value passed on every room URL.
type Endpoint struct {
	BaseURL string // e.g. "ws://meet.example.com:8000"
	Origin  string
	Load    string // value for the l= query parameter
}

// RoomURL renders the connection URL for one room,
// scheme://host:port/ws/{pinCode}?l={load}.
func (e Endpoint) RoomURL(pinCode string) string {
	base := strings.TrimRight(e.BaseURL, "/")
	return fmt.Sprintf("%s/ws/%s?l=%s", base, url.PathEscape(pinCode), url.QueryEscape(e.Load))
}
