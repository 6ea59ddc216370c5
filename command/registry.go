package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound имя команды не зарегистрировано
	ErrNotFound = errors.New("command not found")
	// ErrDuplicateAlias алиас или команда зарегистрированы дважды
	ErrDuplicateAlias = errors.New("duplicate command alias")
)

// HandlerFunc выполняет команду. Возвращенная ошибка попадает в ответ, а не в процесс.
type HandlerFunc func(ctx context.Context, args []string) (string, error)

// HandlerEntry описывает команду и все ее алиасы
type HandlerEntry struct {
	Name    string   // Каноническое имя, используется в метриках
	Aliases []string // Имена, по которым команда доступна
	Usage   string
	Invoke  HandlerFunc
}

// Registry неизменяемая таблица команд, строится один раз при старте
type Registry struct {
	byAlias map[string]HandlerEntry
	entries []HandlerEntry
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewRegistry строит таблицу команд. Повтор алиаса или имени - ошибка конфигурации.
func NewRegistry(entries ...HandlerEntry) (*Registry, error) {
	r := &Registry{
		byAlias: make(map[string]HandlerEntry),
		entries: make([]HandlerEntry, 0, len(entries)),
	}
	names := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		name := normalize(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("command entry without a name")
		}
		if entry.Invoke == nil {
			return nil, fmt.Errorf("command %q has no handler", entry.Name)
		}
		if _, exists := names[name]; exists {
			return nil, fmt.Errorf("%w: command %q registered twice", ErrDuplicateAlias, entry.Name)
		}
		names[name] = struct{}{}

		aliases := entry.Aliases
		if len(aliases) == 0 {
			aliases = []string{entry.Name}
		}
		for _, alias := range aliases {
			key := normalize(alias)
			if key == "" {
				return nil, fmt.Errorf("command %q has an empty alias", entry.Name)
			}
			if other, exists := r.byAlias[key]; exists {
				return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicateAlias, key, other.Name, entry.Name)
			}
			r.byAlias[key] = entry
		}
		r.entries = append(r.entries, entry)
	}

	return r, nil
}

// MustRegistry как NewRegistry, но паникует при ошибке конфигурации
func MustRegistry(entries ...HandlerEntry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve ищет команду без учета регистра и крайних пробелов
func (r *Registry) Resolve(name string) (HandlerEntry, error) {
	entry, ok := r.byAlias[normalize(name)]
	if !ok {
		return HandlerEntry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return entry, nil
}

// Entries возвращает команды в порядке регистрации
func (r *Registry) Entries() []HandlerEntry {
	out := make([]HandlerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
