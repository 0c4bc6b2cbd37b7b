package catreader

import (
	"io"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Identifier is implemented by sources that can name themselves, e.g. by path.
type Identifier interface {
	Identity() string
}

type namer interface {
	Name() string
}

func identityOf(r io.Reader) (string, bool) {
	switch s := r.(type) {
	case Identifier:
		return s.Identity(), true
	case namer: // *os.File
		return s.Name(), true
	}
	return "", false
}

// Tagged pairs a reader with an identity token.
type Tagged struct {
	io.Reader
	id string
}

func Tag(id string, r io.Reader) *Tagged {
	return &Tagged{Reader: r, id: id}
}

var (
	tagNodeOnce sync.Once
	tagNode     *snowflake.Node
	tagNodeErr  error
)

// AutoTag tags r with a freshly generated snowflake id.
func AutoTag(r io.Reader) (*Tagged, error) {
	tagNodeOnce.Do(func() {
		tagNode, tagNodeErr = snowflake.NewNode(1)
	})
	if tagNodeErr != nil {
		return nil, tagNodeErr
	}
	return Tag(tagNode.Generate().String(), r), nil
}

func (t *Tagged) Identity() string {
	return t.id
}

// Close closes the wrapped reader if it is an io.Closer.
func (t *Tagged) Close() error {
	if c, ok := t.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
