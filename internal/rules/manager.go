package rules

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"StockNotifier/internal/model"
)

// ErrGroupNotFound is returned when a group reference matches nothing.
var ErrGroupNotFound = errors.New("group not found")

// Manager holds an in-memory copy of the rules file and applies edits to it.
// Nothing is written until Save is called.
type Manager struct {
	mu       sync.Mutex
	cfg      *model.RulesConfig
	filePath string
}

// NewManager creates a Manager, loading rules from disk or the defaults.
func NewManager(filePath string) (*Manager, error) {
	cfg, err := LoadRules(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, filePath: filePath}, nil
}

// Path returns the backing file path.
func (m *Manager) Path() string { return m.filePath }

// Config returns a copy of the current rules.
func (m *Manager) Config() *model.RulesConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

// Save validates and persists the current rules.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SaveRules(m.filePath, m.cfg)
}

// AddTickers appends symbols not already present and returns those added.
func (m *Manager) AddTickers(symbols ...string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var added []string
	for _, s := range NormalizeTickers(symbols) {
		if slices.Contains(m.cfg.Tickers, s) {
			continue
		}
		m.cfg.Tickers = append(m.cfg.Tickers, s)
		added = append(added, s)
	}
	return added
}

// RemoveTickers drops the given symbols and returns those that were present.
func (m *Manager) RemoveTickers(symbols ...string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := NormalizeTickers(symbols)
	var removed []string
	m.cfg.Tickers = slices.DeleteFunc(m.cfg.Tickers, func(t string) bool {
		if slices.Contains(drop, t) {
			removed = append(removed, t)
			return true
		}
		return false
	})
	return removed
}

// SetWebhook replaces the webhook URL. An empty string disables notification.
func (m *Manager) SetWebhook(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.WebhookURL = strings.TrimSpace(url)
}

// AddGroup appends an empty group and returns its 1-based position. An empty
// name becomes "New Group N".
func (m *Manager) AddGroup(name string, logic model.Logic) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("New Group %d", len(m.cfg.Groups)+1)
	}
	if logic == "" {
		logic = model.LogicAnd
	}
	m.cfg.Groups = append(m.cfg.Groups, model.Group{Name: name, Logic: logic, Conditions: []model.Condition{}})
	return len(m.cfg.Groups)
}

// RemoveGroup deletes the group matching ref and returns it.
func (m *Manager) RemoveGroup(ref string) (model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.findGroup(ref)
	if err != nil {
		return model.Group{}, err
	}
	g := m.cfg.Groups[i]
	m.cfg.Groups = slices.Delete(m.cfg.Groups, i, i+1)
	return g, nil
}

// RenameGroup gives the group matching ref a new display name.
func (m *Manager) RenameGroup(ref, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("group name must not be empty")
	}
	i, err := m.findGroup(ref)
	if err != nil {
		return err
	}
	m.cfg.Groups[i].Name = name
	return nil
}

// SetGroupLogic changes how a group's conditions combine.
func (m *Manager) SetGroupLogic(ref string, logic model.Logic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.findGroup(ref)
	if err != nil {
		return err
	}
	m.cfg.Groups[i].Logic = logic
	return nil
}

// AddCondition appends cond to the group matching ref.
func (m *Manager) AddCondition(ref string, cond model.Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.findGroup(ref)
	if err != nil {
		return err
	}
	m.cfg.Groups[i].Conditions = append(m.cfg.Groups[i].Conditions, cond)
	return nil
}

// Condition returns the 1-based condition index of the group matching ref.
func (m *Manager) Condition(ref string, index int) (model.Condition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.findGroup(ref)
	if err != nil {
		return model.Condition{}, err
	}
	conds := m.cfg.Groups[i].Conditions
	if index < 1 || index > len(conds) {
		return model.Condition{}, fmt.Errorf("condition %d out of range (group has %d)", index, len(conds))
	}
	return conds[index-1], nil
}

// UpdateCondition replaces the 1-based condition index of the group matching
// ref with cond.
func (m *Manager) UpdateCondition(ref string, index int, cond model.Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.findGroup(ref)
	if err != nil {
		return err
	}
	conds := m.cfg.Groups[i].Conditions
	if index < 1 || index > len(conds) {
		return fmt.Errorf("condition %d out of range (group has %d)", index, len(conds))
	}
	conds[index-1] = cond
	return nil
}

// RemoveCondition deletes the 1-based condition index from the group
// matching ref.
func (m *Manager) RemoveCondition(ref string, index int) (model.Condition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.findGroup(ref)
	if err != nil {
		return model.Condition{}, err
	}
	conds := m.cfg.Groups[i].Conditions
	if index < 1 || index > len(conds) {
		return model.Condition{}, fmt.Errorf("condition %d out of range (group has %d)", index, len(conds))
	}
	c := conds[index-1]
	m.cfg.Groups[i].Conditions = slices.Delete(conds, index-1, index)
	return c, nil
}

// findGroup resolves ref as an exact group name first, then as a 1-based
// position.
func (m *Manager) findGroup(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	for i, g := range m.cfg.Groups {
		if g.Name == ref {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(m.cfg.Groups) {
		return n - 1, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrGroupNotFound, ref)
}
