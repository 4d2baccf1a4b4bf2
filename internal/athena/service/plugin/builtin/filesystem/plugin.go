// Package filesystem gives the agent file access. Reads are paged so that
// large files, including payloads spilled by the cognition loop, can be
// revealed a piece at a time.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/spf13/afero"
)

const PluginName = "file-system"

type Config struct {
	// Root confines every path to a directory. Empty means the whole host.
	Root         string `mapstructure:"root"`
	MaxReadBytes int    `mapstructure:"max_read_bytes"`
}

type fileSystem struct {
	cfg   Config
	fs    afero.Fs
	tools []plugin.ToolDefinition
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	conf := Config{MaxReadBytes: 4096}
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode file-system config: %w", err)
	}
	var fs afero.Fs = afero.NewOsFs()
	if conf.Root != "" {
		root, err := filepath.Abs(conf.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve file-system root: %w", err)
		}
		conf.Root = root
		fs = afero.NewBasePathFs(fs, root)
	}
	return newFileSystem(conf, fs), nil
}

func newFileSystem(conf Config, fs afero.Fs) *fileSystem {
	if conf.MaxReadBytes <= 0 {
		conf.MaxReadBytes = 4096
	}
	return &fileSystem{cfg: conf, fs: fs}
}

func (f *fileSystem) Describe() string {
	if f.cfg.Root != "" {
		return fmt.Sprintf("File paths are resolved inside %s; it is the root of every path you pass to the fs tools.", f.cfg.Root)
	}
	home, _ := os.UserHomeDir()
	wd, _ := os.Getwd()
	return fmt.Sprintf("The home directory is %s. The current working directory is %s. "+
		"fs/read returns at most %d bytes per call; pass the returned next_offset to read on.", home, wd, f.cfg.MaxReadBytes)
}

func (f *fileSystem) Load(_ context.Context, api plugin.API) error {
	status := plugin.Args{"status": plugin.String("The status of the operation.", true)}
	path := func(desc string) plugin.Args { return plugin.Args{"path": plugin.String(desc, true)} }
	srcDst := plugin.Args{
		"src": plugin.String("The source path.", true),
		"dst": plugin.String("The destination path.", true),
	}

	f.tools = []plugin.ToolDefinition{
		{
			Name:        "fs/list",
			Description: "Lists a directory.",
			Args:        path("The directory to list."),
			Retvals: plugin.Args{
				"content": plugin.Array("The entries of the directory.", true, plugin.Object("An entry.", true, plugin.Args{
					"name": plugin.String("The name of the file or directory.", true),
					"type": plugin.String(`Either "file" or "directory".`, true),
					"size": plugin.Number("The size of a file in bytes.", false),
				})),
			},
			Handler:     f.list,
			ExplainArgs: explainPath("Listing"),
		},
		{
			Name:        "fs/read",
			Description: "Reads part of a text file.",
			Args: plugin.Args{
				"path":   plugin.String("The file to read.", true),
				"offset": plugin.Number("The byte offset to start at. Defaults to 0.", false),
				"length": plugin.Number(fmt.Sprintf("How many bytes to read, at most %d.", f.cfg.MaxReadBytes), false),
			},
			Retvals: plugin.Args{
				"content":     plugin.String("The content read.", true),
				"size":        plugin.Number("The size of the whole file in bytes.", true),
				"next_offset": plugin.Number("The offset right after the content read.", true),
				"eof":         plugin.Boolean("Whether the end of the file was reached.", true),
			},
			Handler:     f.read,
			ExplainArgs: explainPath("Reading"),
		},
		{
			Name:        "fs/write",
			Description: "Writes to a file, creating it if needed.",
			Args: plugin.Args{
				"path":    plugin.String("The file to write.", true),
				"content": plugin.String("The content to write.", true),
				"append":  plugin.Boolean("Append instead of overwriting.", false),
			},
			Retvals:     status,
			Handler:     f.write,
			ExplainArgs: explainPath("Writing"),
		},
		{
			Name:        "fs/delete",
			Description: "Deletes a file or a directory with everything in it.",
			Args:        path("The path to delete."),
			Retvals:     status,
			Handler:     f.delete,
			ExplainArgs: explainPath("Deleting"),
		},
		{
			Name:        "fs/copy",
			Description: "Copies a file or a directory.",
			Args:        srcDst,
			Retvals:     status,
			Handler:     f.copy,
		},
		{
			Name:        "fs/move",
			Description: "Moves or renames a file or a directory.",
			Args:        srcDst,
			Retvals:     status,
			Handler:     f.move,
		},
		{
			Name:        "fs/mkdir",
			Description: "Creates a directory and any missing parents.",
			Args:        path("The directory to create."),
			Retvals:     status,
			Handler:     f.mkdir,
		},
	}
	return plugin.RegisterAll(api, nil, f.tools)
}

func (f *fileSystem) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, nil, f.tools)
}

func explainPath(verb string) func(map[string]interface{}) *plugin.Explanation {
	return func(args map[string]interface{}) *plugin.Explanation {
		return &plugin.Explanation{Summary: fmt.Sprintf("%s %s...", verb, plugin.StringArg(args, "path"))}
	}
}

func (f *fileSystem) list(_ context.Context, args map[string]interface{}) (interface{}, error) {
	infos, err := afero.ReadDir(f.fs, plugin.StringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	content := make([]interface{}, 0, len(infos))
	for _, info := range infos {
		entry := map[string]interface{}{"name": info.Name(), "type": "file"}
		if info.IsDir() {
			entry["type"] = "directory"
		} else {
			entry["size"] = info.Size()
		}
		content = append(content, entry)
	}
	return map[string]interface{}{"content": content}, nil
}

func (f *fileSystem) read(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := plugin.StringArg(args, "path")
	offset, _ := plugin.NumberArg(args, "offset")
	length, ok := plugin.NumberArg(args, "length")
	if !ok || int(length) <= 0 || int(length) > f.cfg.MaxReadBytes {
		length = float64(f.cfg.MaxReadBytes)
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset %v is negative", offset)
	}

	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, use fs/list", name)
	}

	buf := make([]byte, int(length))
	n, err := file.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, err
	}
	chunk := trimPartialRune(buf[:n])
	next := int64(offset) + int64(len(chunk))
	return map[string]interface{}{
		"content":     string(chunk),
		"size":        info.Size(),
		"next_offset": next,
		"eof":         next >= info.Size(),
	}, nil
}

// trimPartialRune drops a rune cut in half by the end of b, so a paged read
// never hands back broken UTF-8. The dropped bytes start the next page.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

func (f *fileSystem) write(_ context.Context, args map[string]interface{}) (interface{}, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode, _ := args["append"].(bool); appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := f.fs.OpenFile(plugin.StringArg(args, "path"), flags, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := file.WriteString(plugin.StringArg(args, "content")); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (f *fileSystem) delete(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := plugin.StringArg(args, "path")
	if _, err := f.fs.Stat(name); err != nil {
		return nil, err
	}
	if err := f.fs.RemoveAll(name); err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (f *fileSystem) copy(_ context.Context, args map[string]interface{}) (interface{}, error) {
	src, dst := plugin.StringArg(args, "src"), plugin.StringArg(args, "dst")
	info, err := f.fs.Stat(src)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		err = f.copyFile(src, dst, info.Mode())
	} else {
		err = afero.Walk(f.fs, src, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)
			if fi.IsDir() {
				return f.fs.MkdirAll(target, fi.Mode().Perm()|0o700)
			}
			return f.copyFile(p, target, fi.Mode())
		})
	}
	if err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (f *fileSystem) copyFile(src, dst string, mode os.FileMode) error {
	in, err := f.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := f.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (f *fileSystem) move(_ context.Context, args map[string]interface{}) (interface{}, error) {
	if err := f.fs.Rename(plugin.StringArg(args, "src"), plugin.StringArg(args, "dst")); err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}

func (f *fileSystem) mkdir(_ context.Context, args map[string]interface{}) (interface{}, error) {
	if err := f.fs.MkdirAll(plugin.StringArg(args, "path"), 0o755); err != nil {
		return nil, err
	}
	return plugin.Status("success"), nil
}
