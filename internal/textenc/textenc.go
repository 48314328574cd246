package textenc

import (
	"bytes"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Normalize decodes recognition-engine output to a UTF-8 string. Engines
// are treated as untrusted collaborators: their output may carry a BOM or
// a legacy single-byte encoding.
//
// Detection order:
//  1. BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Valid UTF-8 is returned as-is
//  3. Heuristic detection via chardet
//  4. Fallback to Windows-1252
func Normalize(b []byte) (string, error) {
	if bytes.HasPrefix(b, bomUTF8) {
		return string(b[len(bomUTF8):]), nil
	}

	if bytes.HasPrefix(b, bomUTF16LE) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}

		return string(decoded), nil
	}

	if bytes.HasPrefix(b, bomUTF16BE) {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}

		return string(decoded), nil
	}

	if utf8.Valid(b) {
		return string(b), nil
	}

	detector := chardet.NewTextDetector()

	if result, err := detector.DetectBest(b); err == nil {
		switch result.Charset {
		case "UTF-8":
			return string(b), nil
		case "ISO-8859-1", "windows-1252":
			decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
			if err == nil {
				return string(decoded), nil
			}
		case "ISO-8859-9":
			decoded, err := charmap.ISO8859_9.NewDecoder().Bytes(b)
			if err == nil {
				return string(decoded), nil
			}
		}
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}
