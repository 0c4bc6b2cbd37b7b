package catreader

import "errors"

var ErrClosed = errors.New("catreader: reader is closed")

var ErrFileLocked = errors.New("catreader: file is locked by another process")
