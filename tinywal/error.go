package tinywal

import "errors"

var ErrDataTooLarge = errors.New("tinywal: data is larger than a segment")

var ErrClosed = errors.New("tinywal: segment is closed")

var ErrInvalidCRC = errors.New("tinywal: invalid crc, the data may be corrupted")
