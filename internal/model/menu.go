package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category groups menu items.
type Category struct {
	ID          string `json:"$id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Customization is an add-on such as a topping, side, size or crust.
type Customization struct {
	ID    string  `json:"$id,omitempty"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Type  string  `json:"type"`
}

// MenuItem is a dish on the menu.
type MenuItem struct {
	ID          string  `json:"$id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	Calories    int     `json:"calories"`
	Protein     int     `json:"protein"`
	Category    Ref     `json:"categories"`
}

// MenuCustomization links a menu item to one of its customizations.
type MenuCustomization struct {
	ID            string `json:"$id,omitempty"`
	Menu          Ref    `json:"menu"`
	Customization Ref    `json:"customizations"`
}

// GetMenuParams filters the menu. Empty fields are not applied.
type GetMenuParams struct {
	Category string `json:"category,omitempty"`
	Query    string `json:"query,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Ref is a reference to another document. Relationship attributes come
// back either as the referenced ID or as the expanded document; both decode
// to the ID.
type Ref string

// UnmarshalJSON accepts an ID, an expanded document or a list of either
// (in which case the first entry is used).
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref(id)
	case '{':
		var doc struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		*r = Ref(doc.ID)
	case '[':
		var refs []Ref
		if err := json.Unmarshal(data, &refs); err != nil {
			return err
		}
		*r = ""
		if len(refs) > 0 {
			*r = refs[0]
		}
	default:
		return fmt.Errorf("invalid document reference: %s", data)
	}
	return nil
}

// String returns the referenced ID.
func (r Ref) String() string {
	return string(r)
}
