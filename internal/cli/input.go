package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/Sternrassler/forge-miner/pkg/mining"
)

// Input header columns.
const (
	LoginColumn      = "GitHub ID"
	RepositoryColumn = "Repository URL"
)

var (
	// ErrNoIdentifiers is returned when an input holds no identifiers.
	ErrNoIdentifiers = errors.New("input contains no identifiers")

	// ErrMalformedIdentifier is returned by an identifier format check.
	ErrMalformedIdentifier = errors.New("malformed identifier")
)

// GitHub logins: alphanumerics and hyphens, not starting with a hyphen.
var loginPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,38}$`)

// validLogin checks the format of a GitHub login.
func validLogin(id string) error {
	if !loginPattern.MatchString(id) {
		return fmt.Errorf("login %q: %w", id, ErrMalformedIdentifier)
	}
	return nil
}

// validRepositoryURL checks that id names an owner and a repository.
func validRepositoryURL(id string) error {
	if _, _, err := mining.ParseRepositoryURL(id); err != nil {
		return fmt.Errorf("repository %q: %w", id, ErrMalformedIdentifier)
	}
	return nil
}

// partition splits ids into well-formed and malformed ones, both in input
// order.
func partition(ids []string, valid func(string) error) (ok, malformed []string) {
	for _, id := range ids {
		if err := valid(id); err != nil {
			malformed = append(malformed, id)
			continue
		}
		ok = append(ok, id)
	}
	return ok, malformed
}

// readIdentifiers reads the values of column from a CSV with a header row,
// in input order. Blank values are skipped; duplicates are kept.
func readIdentifiers(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoIdentifiers
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("input has no %q column (found %s)", column, strings.Join(header, ", "))
	}

	var ids []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if idx >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[idx]); v != "" {
			ids = append(ids, v)
		}
	}

	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}
	return ids, nil
}

// resolveIdentifiers takes identifiers from positional arguments or, with
// path set, from a CSV file ("-" reads stdin).
func resolveIdentifiers(args []string, path, column string, stdin io.Reader) ([]string, error) {
	if path != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("cannot combine positional identifiers with --input")
		}

		var r io.Reader = stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		return readIdentifiers(r, column)
	}

	ids := make([]string, 0, len(args))
	for _, a := range args {
		if v := strings.TrimSpace(a); v != "" {
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}
	return ids, nil
}
