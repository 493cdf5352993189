package addressbook

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

// New returns a Book holding a copy of the supplied records
func New(records []withdraw.AddressRecord) *Book {
	b := &Book{}
	b.Replace(records, "")
	return b
}

// LoadFile imports addresses from a csv file with an address column and an
// optional label column, or from a txt file with one address per line
func LoadFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []withdraw.AddressRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = LoadCSV(f)
	case ".txt":
		records, err = LoadLines(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	b := &Book{}
	b.Replace(records, path)
	log.Infof(log.AddressBook, "Loaded %d addresses from %s", len(records), path)
	return b, nil
}

// LoadCSV reads address records from a csv stream. Header names are matched
// case insensitively and all values are trimmed. Rows without an address are
// dropped.
func LoadCSV(r io.Reader) ([]withdraw.AddressRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrAddressColumnMissing
		}
		return nil, err
	}

	addressIdx, labelIdx := -1, -1
	for i := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))) {
		case addressColumn:
			addressIdx = i
		case labelColumn:
			labelIdx = i
		}
	}
	if addressIdx == -1 {
		return nil, ErrAddressColumnMissing
	}
	if labelIdx == -1 {
		log.Infoln(log.AddressBook, "No label column found, addresses will be imported without labels")
	}

	var records []withdraw.AddressRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if addressIdx >= len(row) {
			continue
		}
		address := strings.TrimSpace(row[addressIdx])
		if address == "" {
			continue
		}
		var label string
		if labelIdx != -1 && labelIdx < len(row) {
			label = strings.TrimSpace(row[labelIdx])
		}
		records = append(records, withdraw.AddressRecord{Address: address, Label: label})
	}
	return records, nil
}

// LoadLines reads one address per line, ignoring blank lines and lines
// starting with #
func LoadLines(r io.Reader) ([]withdraw.AddressRecord, error) {
	var records []withdraw.AddressRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		records = append(records, withdraw.AddressRecord{Address: line})
	}
	return records, scanner.Err()
}

// Replace swaps the book contents
func (b *Book) Replace(records []withdraw.AddressRecord, source string) {
	cpy := make([]withdraw.AddressRecord, len(records))
	copy(cpy, records)

	b.mtx.Lock()
	b.records = cpy
	b.source = source
	b.mtx.Unlock()
}

// Len returns the number of addresses held
func (b *Book) Len() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return len(b.records)
}

// Source returns the file the addresses were imported from
func (b *Book) Source() string {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.source
}

// Get returns the record at the 0-based index
func (b *Book) Get(index int) (withdraw.AddressRecord, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	if index < 0 || index >= len(b.records) {
		return withdraw.AddressRecord{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return b.records[index], nil
}

// Addresses returns a copy of the held records
func (b *Book) Addresses() []withdraw.AddressRecord {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	cpy := make([]withdraw.AddressRecord, len(b.records))
	copy(cpy, b.records)
	return cpy
}

// AddressExists checks to see if an address is held in the book
func (b *Book) AddressExists(address string) bool {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	for i := range b.records {
		if b.records[i].Address == address {
			return true
		}
	}
	return false
}

// Validate checks every held address against the coin validator
func (b *Book) Validate(coin string) []Invalid {
	return ValidateBatch(coin, b.Addresses())
}
