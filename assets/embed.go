// Package assets embeds the files the server ships with: SQL migrations
// and the help text.
package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strconv"
	"strings"
)

//go:embed help.txt sql/*.sql
var FS embed.FS

// Migrations returns the embedded sql directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// HelpLines returns the help text with the hide delay filled in.
func HelpLines(hideAfter int) ([]string, error) {
	lines, err := readLines("help.txt")
	if err != nil {
		return nil, err
	}
	r := strings.NewReplacer("{hideAfter}", strconv.Itoa(hideAfter))
	for i, l := range lines {
		lines[i] = r.Replace(l)
	}
	return lines, nil
}
