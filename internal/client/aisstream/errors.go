package aisstream

import "errors"

// ErrBadFrame marks a frame that is not valid JSON; the connection itself is still usable.
var ErrBadFrame = errors.New("aisstream: undecodable frame")
