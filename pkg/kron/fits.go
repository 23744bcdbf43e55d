package kron

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// FitsHeader holds parsed FITS header key-value pairs.
type FitsHeader struct {
	Cards map[string]string
}

func (h *FitsHeader) GetString(key string) string {
	return h.Cards[strings.ToUpper(key)]
}

func (h *FitsHeader) GetDouble(key string) (float64, bool) {
	v, ok := h.Cards[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Gain returns the detector gain in e-/ADU when the header carries one.
func (h *FitsHeader) Gain() (float64, bool) { return h.GetDouble("GAIN") }

// ReadNoise returns the detector read noise in electrons when present.
func (h *FitsHeader) ReadNoise() (float64, bool) { return h.GetDouble("RDNOISE") }

// FitsImage is a FITS primary HDU decoded to physical pixel values.
type FitsImage struct {
	Image  *MaskedImage
	Header *FitsHeader
}

// ReadFits reads the primary HDU of a FITS file into a MaskedImage. Pixel
// values are kept in physical units (BSCALE/BZERO applied); the variance
// plane is left zero for the caller to fill from the detector model.
func ReadFits(filePath string) (*FitsImage, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFits(f)
}

func readFits(r io.Reader) (*FitsImage, error) {
	var bitpix, naxis, width, height int
	bzero := 0.0
	bscale := 1.0
	headerDone := false
	header := &FitsHeader{Cards: make(map[string]string)}

	recordBuf := make([]byte, 80)
	for !headerDone {
		for i := 0; i < 36; i++ {
			if _, err := io.ReadFull(r, recordBuf); err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				if remaining := 35 - i; remaining > 0 {
					skipBuf := make([]byte, remaining*80)
					io.ReadFull(r, skipBuf)
				}
				break
			}
			if len(record) > 10 && record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				value := parseFitsValue(rawValue)
				if keyword != "" && value != "" {
					header.Cards[strings.ToUpper(keyword)] = value
				}
				switch keyword {
				case "BITPIX":
					bitpix, _ = strconv.Atoi(rawValue)
				case "NAXIS":
					naxis, _ = strconv.Atoi(rawValue)
				case "NAXIS1":
					width, _ = strconv.Atoi(rawValue)
				case "NAXIS2":
					height, _ = strconv.Atoi(rawValue)
				case "BZERO":
					bzero, _ = strconv.ParseFloat(rawValue, 64)
				case "BSCALE":
					bscale, _ = strconv.ParseFloat(rawValue, 64)
				}
			}
		}
	}

	if naxis < 2 || width == 0 || height == 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}

	numPixels := width * height
	values := make([]float64, numPixels)

	switch bitpix {
	case 8:
		rawBytes := make([]byte, numPixels)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i := range values {
			values[i] = float64(rawBytes[i])*bscale + bzero
		}
	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := range values {
			values[i] = float64(int16(binary.BigEndian.Uint16(rawBytes[i*2:])))*bscale + bzero
		}
	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := range values {
			values[i] = float64(int32(binary.BigEndian.Uint32(rawBytes[i*4:])))*bscale + bzero
		}
	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -32 float pixel data: %w", err)
		}
		for i := range values {
			values[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:])))*bscale + bzero
		}
	case -64:
		rawBytes := make([]byte, numPixels*8)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -64 float pixel data: %w", err)
		}
		for i := range values {
			values[i] = math.Float64frombits(binary.BigEndian.Uint64(rawBytes[i*8:]))*bscale + bzero
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	mi := NewMaskedImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mi.Set(x, y, values[y*width+x])
		}
	}
	return &FitsImage{Image: mi, Header: header}, nil
}

// FillVariance populates the variance plane from a simple detector model:
// var = max(pixel, 0)/gain + (readNoise/gain)^2, in ADU^2.
func (fi *FitsImage) FillVariance(gain, readNoise float64) {
	if gain <= 0 {
		gain = 1
	}
	b := fi.Image.Bounds()
	rn2 := (readNoise / gain) * (readNoise / gain)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			fi.Image.SetVariance(x, y, math.Max(fi.Image.At(x, y), 0)/gain+rn2)
		}
	}
}

func parseFitsValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}
