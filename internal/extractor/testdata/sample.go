package sample

import (
	"fmt"
	rl "example.com/relay"
)

// Entity is the root of the hierarchy.
type Entity struct {
	ID int
}

// Widget is a concrete entity.
type Widget struct {
	*Entity
	Name, Label string `json:"name"`
	Size        int
}

type (
	// Store is a storage contract.
	Store interface {
		Get(key string) (string, error)
		fmt.Stringer
	}
)

// WidgetFactory builds widgets.
//
//relay:factory Entity
type WidgetFactory struct {
	services rl.Provider
}

// NewWidget builds a widget.
//
//relay:inject store
func NewWidget(name string, store Store, extras ...int) (*Widget, error) {
	return &Widget{Name: name}, nil
}

func (f *WidgetFactory) interceptWidget(w *Widget) *Widget {
	return w
}
