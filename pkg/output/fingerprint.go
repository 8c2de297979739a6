package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/minio/highwayhash"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

var fingerprintKey = []byte("tsmerge-result-fingerprint-key!!")

const (
	fieldSep = 0x1f
	rowSep   = 0x1e
	nilMark  = 0x00
)

// Fingerprint returns a 64-bit HighwayHash of a merged result as 16 hex digits.
// It covers column names and every cell in column order.
func Fingerprint(result *series.MergedResult) string {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		// The key is a fixed 32 bytes.
		panic(err)
	}

	buf := make([]byte, 0, 256)
	for _, c := range result.Columns {
		buf = append(buf, c...)
		buf = append(buf, fieldSep)
	}
	buf = append(buf, rowSep)
	_, _ = h.Write(buf)

	for _, row := range result.Rows {
		buf = buf[:0]
		for _, c := range result.Columns {
			v, ok := row[c]
			if !ok || v == nil {
				buf = append(buf, nilMark)
			} else {
				buf = append(buf, FormatValue(v)...)
			}
			buf = append(buf, fieldSep)
		}
		buf = append(buf, rowSep)
		_, _ = h.Write(buf)
	}

	return fmt.Sprintf("%016x", h.Sum64())
}

// FormatValue renders a cell for text and CSV output. Nil renders empty.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}
