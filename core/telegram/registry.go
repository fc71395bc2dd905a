package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRegistration rejects entries without a name or handler.
	ErrInvalidRegistration = errors.New("telegram registry: invalid registration")
	// ErrDuplicate rejects a name, alias or callback key that is already taken.
	ErrDuplicate = errors.New("telegram registry: already registered")
)

// Registry holds bot commands and callbacks. It is filled during wiring and
// read concurrently by the routers afterwards.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry with a default unknown-callback answer.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			return nil
		},
	}
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.Warn(context.Background(), "tg.wire", event, attrs...)
}

// RegisterCommand adds cmd under name, which must start with "/". Aliases
// must not collide with other commands or aliases.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		wireWarn("register.command.skip", slog.String("name", name), slog.String("reason", "invalid"))
		return fmt.Errorf("%w: command %q", ErrInvalidRegistration, name)
	case name[0] != '/':
		wireWarn("register.command.skip", slog.String("name", name), slog.String("reason", "no_slash_prefix"))
		return fmt.Errorf("%w: command %q lacks the / prefix", ErrInvalidRegistration, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(name) {
		wireWarn("register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("%w: command %s", ErrDuplicate, name)
	}
	for _, alias := range cmd.Aliases {
		alias = strings.TrimPrefix(alias, "/")
		if alias == "" || alias == name[1:] {
			continue
		}
		if r.taken("/" + alias) {
			wireWarn("register.command.duplicate", slog.String("name", name), slog.String("alias", alias))
			return fmt.Errorf("%w: alias %q of %s", ErrDuplicate, alias, name)
		}
	}

	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		if alias = strings.TrimPrefix(alias, "/"); alias != "" {
			r.aliases[alias] = name
		}
	}
	return nil
}

// taken reports whether a slash-prefixed name is a command or an alias.
// The caller holds mu.
func (r *Registry) taken(name string) bool {
	if _, ok := r.commands[name]; ok {
		return true
	}
	_, ok := r.aliases[strings.TrimPrefix(name, "/")]
	return ok
}

// ListCommands returns commands sorted by name, optionally only the ones
// meant for the public menu.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && !meta.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a command name or alias, with or without the
// leading slash, to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == "/" {
		return "", commands.Command{}, false
	}
	key := name
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[key]; ok {
		return key, cmd, true
	}
	if canonical, ok := r.aliases[key[1:]]; ok {
		if cmd := r.commands[canonical]; cmd.Matches(key) {
			return canonical, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback adds a callback handler mapped to its unique key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		wireWarn("register.callback.skip", slog.String("key", key), slog.Bool("handler_nil", handler == nil))
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		wireWarn("register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("%w: callback %s", ErrDuplicate, key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
// A nil h keeps the current one.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// CommandSetter is the part of *tele.Bot that publishes the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the public command menu. When adminID is set the
// admin's private chat also lists the admin-only commands.
func InitBotCommands(bot CommandSetter, reg *Registry, adminID int64) {
	ctx := context.Background()
	public := reg.ListCommands(true)
	if err := bot.SetCommands(public); err != nil {
		logger.Error(ctx, "tg.wire", "register.commands.set_failed", slog.Any("err", err))
		return
	}
	if adminID == 0 {
		return
	}
	all := reg.ListCommands(false)
	if len(all) == len(public) {
		return
	}
	scope := tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID}
	if err := bot.SetCommands(all, scope); err != nil {
		logger.Warn(ctx, "tg.wire", "register.commands.admin_failed", slog.Any("err", err))
	}
}
