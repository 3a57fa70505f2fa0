package proposal

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/fsutil"
)

const dirPrefix = "iteration_"

// Dates lists the days that have a proposal under projectDir, newest first.
// Folders that are symlinks, or that lack a proposal document, are ignored.
func Dates(projectDir string) ([]string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	dates := []string{}
	for _, e := range entries {
		date, ok := strings.CutPrefix(e.Name(), dirPrefix)
		if !ok || !e.IsDir() || !validDate(date) {
			continue
		}
		if info, err := os.Lstat(Path(projectDir, date)); err != nil || !info.Mode().IsRegular() {
			continue
		}
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Read returns the proposal written for date. The document is opened without
// following symlinks.
func Read(projectDir, date string) (string, error) {
	if !validDate(date) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid proposal date %q", date))
	}
	if err := fsutil.SymlinkFree(projectDir, dirPrefix+date+"/"+FileName); err != nil {
		return "", errors.NewNotFound(date)
	}

	f, err := fsutil.OpenNoFollow(Path(projectDir, date), os.O_RDONLY, 0)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) || stderrors.Is(err, fsutil.ErrSymlink) {
			return "", errors.NewNotFound(date)
		}
		return "", errors.NewInternal(fmt.Errorf("open proposal: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("read proposal: %w", err))
	}
	return string(data), nil
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
