package host

import (
	"fmt"
	"sync"
)

// MenuItem is one context menu entry.
type MenuItem struct {
	ID       string
	ParentID string
	Title    string
}

// Menus models the extension's context menu registry.
type Menus struct {
	mu    sync.Mutex
	items []MenuItem
}

func (m *Menus) RemoveAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
}

// Create adds an item. Ids are unique and a parent must exist first.
func (m *Menus) Create(item MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parentFound := item.ParentID == ""
	for _, it := range m.items {
		if it.ID == item.ID {
			return fmt.Errorf("duplicate menu item id %q", item.ID)
		}
		if it.ID == item.ParentID {
			parentFound = true
		}
	}
	if !parentFound {
		return fmt.Errorf("menu item %q: unknown parent %q", item.ID, item.ParentID)
	}
	m.items = append(m.items, item)
	return nil
}

// Items returns the entries in creation order.
func (m *Menus) Items() []MenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MenuItem(nil), m.items...)
}

// Lookup finds an item by id.
func (m *Menus) Lookup(id string) (MenuItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			return it, true
		}
	}
	return MenuItem{}, false
}
