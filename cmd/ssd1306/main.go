// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ssd1306 draws a demo scene or an image on a SSD1306 OLED display.
//
// Use -bus term to preview the result in the terminal without hardware.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/GermanBionicSystems/oled/fontface"
	"github.com/GermanBionicSystems/oled/imgconv"
	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/GermanBionicSystems/oled/termpanel"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/gofont/gomono"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func getImageFromFilePath(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// pin returns the named GPIO, or nil when name is empty.
func pin(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such gpio %s", name)
	}
	return p, nil
}

// badge renders a framed label with gg and returns it as a MSB first bitmap.
func badge(label string, w, h int) ([]byte, error) {
	dc := gg.NewContext(w, h)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(0.5, 0.5, float64(w)-1, float64(h)-1, 3)
	dc.SetLineWidth(1)
	dc.Stroke()
	dc.DrawStringAnchored(label, float64(w)/2, float64(h)/2, 0.5, 0.35)
	img, err := imgconv.Convert(dc.Image(), image.Rect(0, 0, w, h), nil)
	if err != nil {
		return nil, err
	}
	stride := (w + 7) / 8
	out := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.BitAt(x, y) {
				out[y*stride+x/8] |= 0x80 >> uint(x&7)
			}
		}
	}
	return out, nil
}

func loadFont(path string, size float64) (*ssd1306.Font, error) {
	if path == "gomono" {
		return fontface.FromTrueType(gomono.TTF, size)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fontface.FromTrueType(b, size)
}

func scene(dev *ssd1306.Dev, text string, scale int) error {
	b := dev.Bounds()
	w, h := b.Dx(), b.Dy()
	if err := dev.Clear(); err != nil {
		return err
	}
	if err := dev.DrawRect(0, 0, w, h, false); err != nil {
		return err
	}
	if err := dev.DrawLine(0, h-1, w-1, 0, true); err != nil {
		return err
	}
	if err := dev.DrawCircle(w-h/4-2, h/4+1, h/4-2, true); err != nil {
		return err
	}
	if h >= 32 {
		bm, err := badge("OK", 32, 16)
		if err != nil {
			return err
		}
		if err := dev.DrawBitmap(3, h-19, bm, 32, 16); err != nil {
			return err
		}
	}
	return dev.DrawTextWrappedScaled(3, 3, w-h/2-6, h-6, text, true, scale)
}

func mainImpl() error {
	bus := flag.String("bus", "i2c", "transport: i2c, spi or term")
	i2cName := flag.String("i2c", "", "I²C bus to use")
	addr := flag.Uint("addr", 0x3c, "I²C address of the display")
	spiName := flag.String("spi", "", "SPI port to use")
	dcName := flag.String("dc", "", "D/C GPIO pin, required with -bus spi")
	rstName := flag.String("rst", "", "optional RES GPIO pin")
	width := flag.Int("width", 128, "display width")
	height := flag.Int("height", 64, "display height")
	text := flag.String("text", "Hello from periph!", "text to draw")
	scale := flag.Int("scale", 1, "text scale")
	imgPath := flag.String("image", "", "image to draw instead of the demo scene")
	dither := flag.Bool("dither", false, "dither the image")
	ttf := flag.String("ttf", "", "TrueType font file, or gomono")
	size := flag.Float64("size", 5, "TrueType font size in pixels")
	contrast := flag.Int("contrast", -1, "contrast, 0 to 255")
	invert := flag.Bool("invert", false, "draw dark on light")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	opts := ssd1306.DefaultOpts
	opts.W = *width
	opts.H = *height
	opts.Addr = uint16(*addr)

	var dev *ssd1306.Dev
	var panel *termpanel.Panel
	switch *bus {
	case "term":
		panel = termpanel.New(&termpanel.Opts{W: opts.W, H: opts.H})
		d, err := ssd1306.New(panel, &opts)
		if err != nil {
			return err
		}
		dev = d
	case "i2c", "spi":
		// Make sure periph is initialized.
		if _, err := host.Init(); err != nil {
			return err
		}
		rst, err := pin(*rstName)
		if err != nil {
			return err
		}
		if *bus == "i2c" {
			b, err := i2creg.Open(*i2cName)
			if err != nil {
				return err
			}
			defer b.Close()
			if dev, err = ssd1306.NewI2C(b, rst, &opts); err != nil {
				return err
			}
			break
		}
		p, err := spireg.Open(*spiName)
		if err != nil {
			return err
		}
		defer p.Close()
		dc, err := pin(*dcName)
		if err != nil {
			return err
		}
		if dev, err = ssd1306.NewSPI(p, dc, rst, &opts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown bus %q", *bus)
	}
	defer dev.Close()
	log.Printf("device=%s", dev)

	if *ttf != "" {
		f, err := loadFont(*ttf, *size)
		if err != nil {
			return err
		}
		if err := dev.SetFont(f); err != nil {
			return err
		}
	}
	if *contrast >= 0 {
		if err := dev.SetContrast(byte(*contrast)); err != nil {
			return err
		}
	}
	if err := dev.Invert(*invert); err != nil {
		return err
	}

	if *imgPath != "" {
		src, err := getImageFromFilePath(*imgPath)
		if err != nil {
			return err
		}
		img, err := imgconv.Convert(src, dev.Bounds(), &imgconv.Opts{Dither: *dither})
		if err != nil {
			return err
		}
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			return err
		}
	} else {
		if err := scene(dev, *text, *scale); err != nil {
			return err
		}
		if err := dev.Flush(); err != nil {
			return err
		}
	}
	if panel != nil {
		return panel.Refresh()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("ssd1306: %v", err)
	}
}
