package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Lookup внешний словарь; возвращает готовый к публикации текст
type Lookup interface {
	Lookup(ctx context.Context, word string) string
}

// Options параметры встроенных команд
type Options struct {
	WorkDir    string // Рабочий каталог; пусто - текущий каталог процесса
	Runner     Runner // nil - RunExternal
	Dictionary Lookup // nil - команда define не регистрируется
}

// Builtins возвращает встроенные команды агента
func Builtins(opts Options) []HandlerEntry {
	h := &builtins{workDir: opts.WorkDir, run: opts.Runner, dict: opts.Dictionary}
	if h.run == nil {
		h.run = RunExternal
	}

	entries := []HandlerEntry{
		{
			Name:    "list_directory",
			Aliases: []string{"ls", "list_directory"},
			Usage:   "ls [path]",
			Invoke:  h.listDirectory,
		},
		{
			Name:    "get_ip_address",
			Aliases: []string{"ip", "get_ip_address"},
			Usage:   "ip",
			Invoke:  h.ipAddresses,
		},
		{
			Name:    "get_free_memory",
			Aliases: []string{"mem", "get_free_memory"},
			Usage:   "mem",
			Invoke:  h.freeMemory,
		},
		{
			Name:    "create_file",
			Aliases: []string{"mkfile", "create_file"},
			Usage:   "mkfile <filename> [content]",
			Invoke:  h.createFile,
		},
	}
	if h.dict != nil {
		entries = append(entries, HandlerEntry{
			Name:    "define",
			Aliases: []string{"define", "dict"},
			Usage:   "define <word>",
			Invoke:  h.define,
		})
	}
	return entries
}

type builtins struct {
	workDir string
	run     Runner
	dict    Lookup
}

func (h *builtins) dir() (string, error) {
	if h.workDir != "" {
		return filepath.Abs(h.workDir)
	}
	return os.Getwd()
}

func (h *builtins) listDirectory(ctx context.Context, args []string) (string, error) {
	path := "."
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		path = strings.TrimSpace(args[0])
	}

	target := path
	if !filepath.IsAbs(target) {
		base, err := h.dir()
		if err != nil {
			return "", replyErrorf(fmt.Errorf("resolve working directory: %w", err), "Error resolving working directory: %v", err)
		}
		target = filepath.Join(base, target)
	}

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return "", replyErrorf(fmt.Errorf("%w: %s", ErrNotDirectory, path), "'%s' is not a valid directory.", path)
	}

	return h.run(ctx, "ls", "-lah", target)
}

func (h *builtins) ipAddresses(ctx context.Context, _ []string) (string, error) {
	return h.run(ctx, "ip", "addr")
}

func (h *builtins) freeMemory(ctx context.Context, _ []string) (string, error) {
	return h.run(ctx, "free", "-h")
}

func (h *builtins) createFile(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", replyErrorf(fmt.Errorf("%w: filename", ErrMissingArgument),
			"'create_file' (or 'mkfile') requires a filename. Usage: mkfile <filename> [content]")
	}

	filename := strings.TrimSpace(args[0])
	content := ""
	if len(args) > 1 {
		content = args[1]
	}

	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return "", replyErrorf(fmt.Errorf("%w: %q", ErrInvalidFilename, filename),
			"Invalid filename. Cannot contain path separators or '..'.")
	}
	if filename == "" {
		return "", replyErrorf(fmt.Errorf("%w: empty", ErrInvalidFilename), "Filename cannot be empty.")
	}

	base, err := h.dir()
	if err != nil {
		return "", replyErrorf(fmt.Errorf("resolve working directory: %w", err), "Error creating file: %v", err)
	}
	path := filepath.Join(base, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", replyErrorf(fmt.Errorf("create %s: %w", path, err), "Error creating file: %v", err)
	}

	return fmt.Sprintf("Success: File '%s' created at '%s'.", filename, path), nil
}

func (h *builtins) define(ctx context.Context, args []string) (string, error) {
	word := strings.TrimSpace(strings.Join(args, " "))
	if word == "" {
		return "", replyErrorf(fmt.Errorf("%w: word", ErrMissingArgument), "No word provided.")
	}
	meaning := h.dict.Lookup(ctx, word)
	if strings.HasPrefix(meaning, "Error") || strings.HasPrefix(meaning, "Sorry") {
		return "", replyErrorf(fmt.Errorf("%w: %q", ErrLookupFailed, word), "%s", meaning)
	}
	return meaning, nil
}
