package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/skridlevsky/linkattrs/parser"
	"github.com/skridlevsky/linkattrs/types"
)

// ErrNotFound is returned when a file is not part of the vault index.
var ErrNotFound = errors.New("file not found in vault")

// cachedFile holds an indexed vault file in memory.
type cachedFile struct {
	file      types.File
	lowerPath string // lowercase vault path, extension included
	cache     *types.FileCache
	content   string
}

// Client is an Obsidian vault on disk. It reads all files on Load and
// answers metadata, resolution and content queries from memory.
type Client struct {
	vaultPath string
	logger    *slog.Logger

	mu      sync.RWMutex
	files   map[string]*cachedFile   // lowercase path → file
	byName  map[string][]*cachedFile // lowercase file name (with extension) → files
	aliases map[string]*cachedFile   // lowercase frontmatter alias → file
}

// Option configures a vault Client.
type Option func(*Client)

// WithLogger sets the logger used for skipped files (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new vault client. Call Load() to index the vault.
func New(vaultPath string, opts ...Option) *Client {
	c := &Client{
		vaultPath: vaultPath,
		logger:    slog.Default(),
	}
	c.reset()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) reset() {
	c.files = make(map[string]*cachedFile)
	c.byName = make(map[string][]*cachedFile)
	c.aliases = make(map[string]*cachedFile)
}

// Path returns the vault root on disk.
func (c *Client) Path() string { return c.vaultPath }

// Load reads every file in the vault and builds the in-memory index.
// Markdown files are parsed; other files are indexed for link resolution only.
func (c *Client) Load() error {
	if err := c.Ping(context.Background()); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return filepath.Walk(c.vaultPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			c.logger.Debug("skipping unreadable path", slog.String("path", p), slog.Any("error", err))
			return nil
		}

		// Skip hidden directories (.obsidian, .git, etc).
		if info.IsDir() && p != c.vaultPath && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		relPath, err := filepath.Rel(c.vaultPath, p)
		if err != nil {
			return nil
		}

		var content string
		if strings.HasSuffix(strings.ToLower(info.Name()), ".md") {
			data, err := os.ReadFile(p)
			if err != nil {
				c.logger.Debug("skipping unreadable note", slog.String("path", p), slog.Any("error", err))
				return nil
			}
			content = string(data)
		}
		c.indexFile(filepath.ToSlash(relPath), content)
		return nil
	})
}

// Reload clears the index and re-reads the vault.
func (c *Client) Reload() error {
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	return c.Load()
}

// AddFile indexes (or re-indexes) a single note from memory. Used by
// callers that render content not yet written to disk.
func (c *Client) AddFile(relPath, content string) types.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexFile(relPath, content)
}

// indexFile parses a single file and adds it to the index. Caller holds mu.
func (c *Client) indexFile(relPath, content string) types.File {
	file := types.NewFile(relPath)
	lowerPath := strings.ToLower(file.Path)
	if old, ok := c.files[lowerPath]; ok {
		c.unindexLocked(old)
	}

	cf := &cachedFile{file: file, lowerPath: lowerPath}
	if file.Extension == "md" {
		cf.content = content
		cf.cache = buildCache(content)
	}

	c.files[lowerPath] = cf
	name := path.Base(lowerPath)
	c.byName[name] = append(c.byName[name], cf)

	if cf.cache != nil {
		for _, a := range frontmatterList(cf.cache.Frontmatter, "aliases", "alias") {
			c.aliases[strings.ToLower(a)] = cf
		}
	}
	return file
}

func (c *Client) unindexLocked(cf *cachedFile) {
	delete(c.files, cf.lowerPath)
	name := path.Base(cf.lowerPath)
	list := c.byName[name]
	for i, other := range list {
		if other == cf {
			c.byName[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	for alias, target := range c.aliases {
		if target == cf {
			delete(c.aliases, alias)
		}
	}
}

// buildCache parses frontmatter, links and tags of a note.
func buildCache(content string) *types.FileCache {
	props, bodyStart := parseFrontmatter(content)
	return &types.FileCache{
		Frontmatter: props,
		Links:       parser.ParseLinks(content, bodyStart),
		Tags:        parser.ParseTags(content, bodyStart),
	}
}

// Ping checks that the vault path is a readable directory.
func (c *Client) Ping(_ context.Context) error {
	info, err := os.Stat(c.vaultPath)
	if err != nil {
		return fmt.Errorf("vault path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", c.vaultPath)
	}
	return nil
}

// File looks up a file by its vault path (case-insensitive).
func (c *Client) File(p string) (types.File, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cf, ok := c.files[strings.ToLower(types.NewFile(p).Path)]
	if !ok {
		return types.File{}, false
	}
	return cf.file, true
}

// Files lists every indexed file sorted by path.
func (c *Client) Files() []types.File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	files := make([]types.File, 0, len(c.files))
	for _, cf := range c.files {
		files = append(files, cf.file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// GetFileCache returns the parsed metadata of a note, or nil when the file
// is unknown or is not a note.
func (c *Client) GetFileCache(f types.File) *types.FileCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cf, ok := c.files[strings.ToLower(f.Path)]
	if !ok {
		return nil
	}
	return cf.cache
}

// CachedRead returns the raw text of a note as of the last index.
func (c *Client) CachedRead(ctx context.Context, f types.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cf, ok := c.files[strings.ToLower(f.Path)]
	if !ok {
		return "", fmt.Errorf("read %s: %w", f.Path, ErrNotFound)
	}
	return cf.content, nil
}

// GetFirstLinkpathDest resolves a link path (no #subpath) written in
// sourcePath to the best matching file, or nil when nothing matches.
//
// Resolution order: exact vault path, path relative to the source folder
// (tried first for links starting with ./ or ../),
// files whose path ends with the link path (same folder as the source
// first, then shortest path), then frontmatter aliases. A missing
// extension means ".md".
func (c *Client) GetFirstLinkpathDest(linkpath, sourcePath string) *types.File {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lp := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(linkpath, "\\", "/")))
	lp = strings.TrimLeft(lp, "/")
	if lp == "" {
		// [[#heading]] points at the source itself.
		return c.lookupLocked(sourcePath, true)
	}

	candidates := []string{lp}
	if path.Ext(lp) != ".md" {
		candidates = []string{lp + ".md", lp}
	}

	sourceDir := strings.ToLower(types.NewFile(sourcePath).Dir())

	// ./x and ../x are relative to the source folder before anything else.
	relative := strings.HasPrefix(lp, "./") || strings.HasPrefix(lp, "../")

	for _, cand := range candidates {
		if relative {
			if cf, ok := c.files[vaultJoin(sourceDir, cand)]; ok {
				return fileRef(cf)
			}
		}
		if cf, ok := c.files[vaultJoin("", cand)]; ok {
			return fileRef(cf)
		}
		if !relative && sourceDir != "" {
			if cf, ok := c.files[vaultJoin(sourceDir, cand)]; ok {
				return fileRef(cf)
			}
		}
		if cf := c.bestSuffixMatchLocked(cand, sourceDir); cf != nil {
			return fileRef(cf)
		}
	}

	if !strings.Contains(lp, "/") {
		if cf, ok := c.aliases[lp]; ok {
			return fileRef(cf)
		}
	}
	return nil
}

func (c *Client) lookupLocked(p string, addExt bool) *types.File {
	lower := strings.ToLower(strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/"))
	if lower == "" {
		return nil
	}
	if cf, ok := c.files[lower]; ok {
		return fileRef(cf)
	}
	if addExt {
		if cf, ok := c.files[lower+".md"]; ok {
			return fileRef(cf)
		}
	}
	return nil
}

// bestSuffixMatchLocked picks among files whose path ends with cand.
func (c *Client) bestSuffixMatchLocked(cand, sourceDir string) *cachedFile {
	var best *cachedFile
	for _, cf := range c.byName[path.Base(cand)] {
		if cf.lowerPath != cand && !strings.HasSuffix(cf.lowerPath, "/"+cand) {
			continue
		}
		if best == nil || betterMatch(cf, best, sourceDir) {
			best = cf
		}
	}
	return best
}

func betterMatch(a, b *cachedFile, sourceDir string) bool {
	aLocal := dirOf(a.lowerPath) == sourceDir
	bLocal := dirOf(b.lowerPath) == sourceDir
	if aLocal != bLocal {
		return aLocal
	}
	if len(a.lowerPath) != len(b.lowerPath) {
		return len(a.lowerPath) < len(b.lowerPath)
	}
	return a.lowerPath < b.lowerPath
}

// vaultJoin joins p onto dir and cleans the result into a vault path.
// ".." never climbs above the vault root.
func vaultJoin(dir, p string) string {
	return strings.TrimPrefix(path.Clean("/"+dir+"/"+p), "/")
}

// dirOf returns the folder of a vault path, "" for the vault root.
func dirOf(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

func fileRef(cf *cachedFile) *types.File {
	f := cf.file
	return &f
}
