package vis

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sort"
)

// AssembleGIF joins the lead-step frames of one variable level into an
// animated loop at one frame per second.
func AssembleGIF(dir, name string, lvl int) error {
	fps, err := filepath.Glob(fmt.Sprintf("%s%s_test_lvl_%02d_t_*.png", dir, name, lvl))
	if err != nil {
		return err
	}
	if len(fps) == 0 {
		return fmt.Errorf("vis.AssembleGIF: no frames for %s level %d under %s", name, lvl, dir)
	}
	sort.Strings(fps)

	g := &gif.GIF{}
	for _, fp := range fps {
		f, err := os.Open(fp)
		if err != nil {
			return err
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("vis.AssembleGIF: %s: %v", fp, err)
		}
		pal := image.NewPaletted(img.Bounds(), palette.Plan9)
		draw.Draw(pal, img.Bounds(), img, image.Point{}, draw.Src)
		g.Image = append(g.Image, pal)
		g.Delay = append(g.Delay, 100) // 1 fps
	}

	out, err := os.Create(fmt.Sprintf("%s%s_lvl_%02d.gif", dir, name, lvl))
	if err != nil {
		return err
	}
	defer out.Close()
	return gif.EncodeAll(out, g)
}
