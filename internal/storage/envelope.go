package storage

import (
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/pixil98/go-errors"
)

const currentVersion = 1

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Record is anything a FileStore can keep.
type Record interface {
	Validate() error
}

type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Envelope is the on-disk form of a stored record.
type Envelope[T Record] struct {
	Version    uint       `json:"version"`
	Identifier Identifier `json:"id"`
	SavedAt    time.Time  `json:"saved_at"`
	Body       T          `json:"body"`
}

func (e *Envelope[T]) Id() string {
	return e.Identifier.String()
}

func (e *Envelope[T]) Validate() error {
	el := errors.NewErrorList()

	switch {
	case e.Version == 0:
		el.Add(fmt.Errorf("version must be set"))
	case e.Version > currentVersion:
		el.Add(fmt.Errorf("version %d is newer than supported version %d", e.Version, currentVersion))
	}

	switch {
	case e.Identifier == "":
		el.Add(fmt.Errorf("id must be set"))
	case !identifierPattern.MatchString(e.Identifier.String()):
		el.Add(fmt.Errorf("id %q must be alphanumeric", e.Identifier))
	}

	if v := reflect.ValueOf(e.Body); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		el.Add(fmt.Errorf("body must be set"))
	} else {
		el.Add(e.Body.Validate())
	}

	return el.Err()
}
