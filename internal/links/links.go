// Package links validates markdown links in a toolkit tree: local targets
// must resolve to existing files, and optionally external http(s) targets
// are fetched and their fragments verified.
package links

import (
	"bufio"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var linkPattern = regexp.MustCompile(`\[[^\]]+\]\(([^)]+)\)`)

var skipPrefixes = []string{"mailto:", "tel:"}

var externalPrefixes = []string{"http://", "https://"}

// Link is one markdown link occurrence.
type Link struct {
	File   string // relative to the scan root, slash-separated
	Line   int
	Target string
}

// Broken is a link that failed validation.
type Broken struct {
	Link
	Reason string
}

// Scan walks root for markdown files (skipping .git) and extracts their
// links, split into local and external targets. Fragment-only ("#...") and
// mailto/tel targets are ignored.
func Scan(root string) (local, external []Link, filesScanned int, err error) {
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}
	sort.Strings(files)

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, 0, err
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			for _, match := range linkPattern.FindAllStringSubmatch(scanner.Text(), -1) {
				target := normalizeTarget(match[1])
				if target == "" || strings.HasPrefix(target, "#") || hasAnyPrefix(target, skipPrefixes) {
					continue
				}
				link := Link{File: rel, Line: lineNo, Target: target}
				if hasAnyPrefix(target, externalPrefixes) {
					external = append(external, link)
				} else {
					local = append(local, link)
				}
			}
		}
		serr := scanner.Err()
		f.Close()
		if serr != nil {
			return nil, nil, 0, serr
		}
	}

	return local, external, len(files), nil
}

// CheckLocal resolves each local link against the tree and reports targets
// that do not exist. Root-absolute targets ("/docs/x.md") resolve against
// the scan root, everything else against the linking file's directory.
func CheckLocal(root string, links []Link) []Broken {
	var broken []Broken
	for _, link := range links {
		pathPart := strings.TrimSpace(strings.SplitN(link.Target, "#", 2)[0])
		if pathPart == "" {
			continue
		}

		var resolved string
		if strings.HasPrefix(pathPart, "/") {
			resolved = filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(pathPart, "/")))
		} else {
			resolved = filepath.Join(root, filepath.Dir(filepath.FromSlash(link.File)), filepath.FromSlash(pathPart))
		}

		if _, err := os.Stat(resolved); err != nil {
			broken = append(broken, Broken{Link: link, Reason: "target does not exist"})
		}
	}
	return broken
}

func normalizeTarget(raw string) string {
	target := strings.TrimSpace(raw)
	if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
		target = strings.TrimSpace(target[1 : len(target)-1])
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	return target
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
