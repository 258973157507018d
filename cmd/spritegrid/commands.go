package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"

	"github.com/ivlev/spritegrid/internal/animation"
	"github.com/ivlev/spritegrid/internal/classifier"
	"github.com/ivlev/spritegrid/internal/engine"
	"github.com/ivlev/spritegrid/internal/playback"
	"github.com/ivlev/spritegrid/internal/raster"
	"github.com/ivlev/spritegrid/internal/system"
)

func runDetect(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	inputPtr := fs.String("input", "", "Spritesheet image (default: newest image in the input dir)")
	bgPtr := fs.String("bg", a.cfg.Background, "Background colour (#rrggbb or r,g,b); empty samples the sheet edges")
	tolPtr := fs.Int("tolerance", a.cfg.Tolerance, "Per-channel background tolerance, 0-255")
	minWPtr := fs.Int("min-width", a.cfg.MinWidth, "Minimum sprite width")
	minHPtr := fs.Int("min-height", a.cfg.MinHeight, "Minimum sprite height")
	groupPtr := fs.String("group", a.cfg.Grouping, "Grouping: none, row, column, classifier")
	modelPtr := fs.String("model", a.cfg.ClassifierModel, "Classifier model for -group classifier")
	savePtr := fs.String("save", "", "Save the assembled animations under this entity name")
	jsonPtr := fs.Bool("json", false, "Print the detection as JSON")
	var adds multiFlag
	fs.Var(&adds, "add", "Append boxes to a pending animation: name=0,1,2 (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := *inputPtr
	if input == "" {
		latest, err := system.FindLatestImage(a.cfg.InputDir)
		if err != nil {
			return fmt.Errorf("%v. Put a spritesheet into %s or pass -input", err, a.cfg.InputDir)
		}
		input = latest
		fmt.Printf("[*] Выбран лист: %s\n", input)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	p := a.project
	sh, err := p.Upload(ctx, filepath.Base(input), data)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Лист #%d: %dx%d %s, %s\n", sh.ID, sh.Buffer.Width(), sh.Buffer.Height(), sh.Format, humanize.Bytes(uint64(sh.Size)))

	if *bgPtr != "" {
		c, err := raster.ParseColor(*bgPtr)
		if err != nil {
			return err
		}
		p.SetBackground(c)
	}
	fmt.Printf("[*] Цвет фона: %s\n", p.Background().Hex())

	opts := p.DefaultDetectOptions()
	opts.Params.Tolerance = *tolPtr
	opts.Params.MinWidth = *minWPtr
	opts.Params.MinHeight = *minHPtr
	opts.Grouping = *groupPtr
	opts.Model = *modelPtr

	d, err := p.Detect(ctx, opts)
	if err != nil {
		return err
	}
	if *jsonPtr {
		if err := printJSON(d); err != nil {
			return err
		}
	} else {
		printDetection(d)
	}

	for _, arg := range adds {
		name, idx, err := parseAdd(arg)
		if err != nil {
			return err
		}
		n, err := p.AddSelected(name, idx)
		if err != nil {
			return fmt.Errorf("add %q: %w", name, err)
		}
		fmt.Printf("[+] Добавлено кадров в %[2]q: %[1]d\n", n, name)
	}

	if *savePtr == "" {
		if names := p.PendingNames(); len(names) > 0 {
			fmt.Printf("[!] Анимации не сохранены (используйте -save NAME): %s\n", strings.Join(names, ", "))
		}
		return nil
	}
	e, err := p.Save(ctx, *savePtr)
	if err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! %q сохранено как %s, анимаций: %d\n", e.Name, e.ID, len(e.Animations))
	return nil
}

// parseAdd разбирает "walk=0,1,2" на имя и индексы.
func parseAdd(arg string) (string, []int, error) {
	name, list, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("bad -add %q, want name=0,1,2", arg)
	}
	var idx []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			from, err1 := strconv.Atoi(lo)
			to, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || from > to {
				return "", nil, fmt.Errorf("bad range %q in -add %q", part, arg)
			}
			for i := from; i <= to; i++ {
				idx = append(idx, i)
			}
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return "", nil, fmt.Errorf("bad index %q in -add %q", part, arg)
		}
		idx = append(idx, i)
	}
	return name, idx, nil
}

func printDetection(d *engine.Detection) {
	fmt.Printf("[*] Найдено спрайтов: %d, строк: %d [группировка %s, %s]\n",
		len(d.Boxes), len(d.Rows), d.Strategy, d.Elapsed.Round(time.Millisecond))
	for _, row := range d.Rows {
		label := ""
		if row.Label != "" {
			label = ": " + classifier.DisplayName(row.Label)
		}
		fmt.Printf("    Row %d%s\n", row.Index, label)
		for _, i := range row.Indices {
			b := d.Boxes[i]
			fmt.Printf("      #%-3d x=%-4d y=%-4d w=%-4d h=%d\n", i, b.X, b.Y, b.Width, b.Height)
		}
	}
	if d.Strategy != "none" {
		for gi, g := range d.Groups {
			label := g.Label
			if label == "" {
				label = g.Key.String()
			}
			fmt.Printf("    Group %d (%s): %v\n", gi, label, g.Indices)
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	sheetsPtr := fs.Bool("sheets", false, "List stored spritesheets instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *sheetsPtr {
		infos, err := a.sheets.ListSheets(ctx)
		if err != nil {
			return err
		}
		for _, s := range infos {
			fmt.Printf("#%-5d %-30s %8s  %s\n", s.ID, s.Name, humanize.Bytes(uint64(s.Size)), humanize.Time(s.CreatedAt))
		}
		return nil
	}

	ents := a.project.Entities()
	if len(ents) == 0 {
		fmt.Println("[*] Сохраненных анимаций пока нет")
		return nil
	}
	for _, e := range ents {
		fmt.Printf("%s  %s (sheet #%s, %dx%d)\n", e.ID, e.Name, e.Sheet, e.Meta.Size.W, e.Meta.Size.H)
		for _, name := range e.AnimationNames() {
			fmt.Printf("    %-20s %d frame(s)\n", classifier.DisplayName(name), len(e.Animations[name]))
		}
	}
	return nil
}

func runExport(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatPtr := fs.String("format", "json", "Output format: json or yaml")
	outputPtr := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := a.project.Export(*formatPtr)
	if err != nil {
		return err
	}
	if *outputPtr == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*outputPtr, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("[+] Экспортировано %s в %s\n", humanize.Bytes(uint64(len(data))), *outputPtr)
	return nil
}

func runImport(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: spritegrid import FILE")
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	doc, err := a.project.Import(data)
	if err != nil {
		return err
	}
	fmt.Printf("[+] Импортировано анимаций: %d, навыков: %d, персонажей: %d\n",
		doc.SpriteAnimations.Len(), doc.Skills.Len(), doc.Characters.Len())
	return nil
}

func runExtract(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	idPtr := fs.String("id", "", "Entity id")
	animPtr := fs.String("anim", "", "Only this animation (default: all)")
	outputPtr := fs.String("output", "output", "Output directory")
	scalePtr := fs.Int("scale", 1, "Integer upscale factor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := a.project.Entity(*idPtr)
	if err != nil {
		return err
	}
	buf, err := a.project.SheetBuffer(ctx, e.Sheet)
	if err != nil {
		return err
	}
	names := e.AnimationNames()
	if *animPtr != "" {
		names = []string{*animPtr}
	}

	dir := filepath.Join(*outputPtr, safeName(e.Name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	total := 0
	for _, name := range names {
		seq, ok := e.Sequence(name)
		if !ok {
			return fmt.Errorf("%w: animation %q", engine.ErrNotFound, name)
		}
		for i, f := range seq {
			path := filepath.Join(dir, fmt.Sprintf("%s_%02d.png", safeName(classifier.DisplayName(name)), i))
			if err := writeFrame(buf, f, *scalePtr, path); err != nil {
				return err
			}
			total++
		}
	}
	fmt.Printf("[+] Извлечено кадров: %d в %s\n", total, dir)
	return nil
}

func writeFrame(buf *raster.Buffer, f animation.Frame, scale int, path string) error {
	img := imaging.Crop(buf.Image(), f.Rect())
	if scale > 1 {
		img = imaging.Resize(img, f.W*scale, f.H*scale, imaging.NearestNeighbor)
	}
	return imaging.Save(img, path)
}

func safeName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "sprite"
	}
	return s
}

func runPlay(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	idPtr := fs.String("id", "", "Entity id")
	animPtr := fs.String("anim", "", "Animation name")
	fpsPtr := fs.Float64("fps", float64(a.cfg.EntityFPS), "Frames per second")
	durPtr := fs.Duration("duration", 2*time.Second, "How long to play")
	outputPtr := fs.String("output", "output/play", "Directory for rendered ticks")
	scalePtr := fs.Int("scale", 1, "Integer upscale factor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := os.MkdirAll(*outputPtr, 0o755); err != nil {
		return err
	}

	surface := playback.NewImageSurface(*scalePtr)
	tick := 0
	surface.OnDraw(func(canvas *image.RGBA) {
		path := filepath.Join(*outputPtr, fmt.Sprintf("tick_%04d.png", tick))
		tick++
		if err := imaging.Save(canvas, path); err != nil {
			a.logger.Warn("write tick", "path", path, "error", err)
		}
	})

	if err := a.project.PlayEntity(ctx, *idPtr, *animPtr, surface); err != nil {
		return err
	}
	target := playback.Target{EntityID: *idPtr, Animation: *animPtr}
	if *fpsPtr != float64(a.cfg.EntityFPS) {
		if err := a.project.SetFPS(target, *fpsPtr); err != nil {
			return err
		}
	}
	fmt.Printf("[*] Воспроизведение %s/%s в течение %s...\n", *idPtr, *animPtr, *durPtr)

	select {
	case <-time.After(*durPtr):
	case <-ctx.Done():
	}
	a.project.StopEntity(*idPtr, *animPtr)
	fmt.Printf("[+] Отрисовано тиков: %d в %s\n", surface.Draws(), *outputPtr)
	return nil
}

func runModels(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	models, err := a.project.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("[!] Vision-модели не найдены. Загрузите, например, llama3.2-vision")
		return nil
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	for _, m := range models {
		marker := " "
		if m.Name == a.cfg.ClassifierModel {
			marker = "*"
		}
		fmt.Printf("%s %s (%s)\n", marker, m.Name, m.Details.Family)
	}
	return nil
}

func runDelete(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	idPtr := fs.String("id", "", "Entity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := a.project.DeleteEntity(*idPtr)
	if err != nil {
		return err
	}
	fmt.Printf("[+] Удалено: %q\n", e.Name)
	return nil
}
