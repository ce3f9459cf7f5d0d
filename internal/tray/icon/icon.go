// Package icon provides the tray icon image.
package icon

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
)

// RelPath is where the tray icon is looked up, relative to the working
// directory and then to the executable's directory. The format matches what
// the platform tray accepts.
var RelPath = relPath(runtime.GOOS)

const fallbackSize = 32

// Load returns the icon bytes for the tray. A missing icon file yields
// a generated disc.
func Load() []byte {
	for _, path := range candidates() {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return data
		}
	}
	return Fallback()
}

func relPath(goos string) string {
	if goos == "windows" {
		return filepath.Join("icons", "app.ico")
	}
	return filepath.Join("icons", "app.png")
}

func candidates() []string {
	paths := []string{RelPath}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), RelPath))
	}
	return paths
}

// Fallback draws a filled light-blue disc on a transparent background.
// Windows trays need an ICO container, other platforms take the PNG.
func Fallback() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, fallbackSize, fallbackSize))
	fill := color.NRGBA{R: 100, G: 150, B: 255, A: 255}
	const center, radius = fallbackSize / 2, 12.0

	for y := 0; y < fallbackSize; y++ {
		for x := 0; x < fallbackSize; x++ {
			dx, dy := float64(x-center), float64(y-center)
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes(), fallbackSize)
	}
	return buf.Bytes()
}

// wrapICO embeds a PNG image in a single-entry ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR: reserved, type 1 (icon), one image
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.WriteByte(byte(size))
	buf.WriteByte(byte(size))
	buf.WriteByte(0) // palette
	buf.WriteByte(0) // reserved
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bpp
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
