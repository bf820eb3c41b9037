package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	. "github.com/ZenLiuCN/lazylink"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Usage = "native library probe"
	app.Name = "dlprobe"
	app.Description = "dlprobe opens shared library candidates and resolves symbols through lazy binding"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}},
	}
	app.Args = true
	app.Commands = []*cli.Command{
		{Name: "open",
			Action: open,
			Usage:  "try each candidate in order and report which one wins",
			Args:   true,
		},
		{Name: "sym",
			Action: sym,
			Usage:  "resolve symbols against a candidate list",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "lib", Aliases: []string{"l"}, Usage: "candidate library, repeatable, none for the process image"},
			},
			Args: true,
		},
		{Name: "call",
			Action: call,
			Usage:  "resolve one symbol and invoke it with raw word arguments",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "lib", Aliases: []string{"l"}, Usage: "candidate library, repeatable, none for the process image"},
			},
			Args: true,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("failure %s", err)
	}
}

type report struct {
	Candidate string
	Opened    bool
	Error     string
}

func open(ctx *cli.Context) error {
	d := ctx.Bool("debug")
	names := ctx.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("missing candidate list")
	}
	ld := System()
	var reports []report
	for _, name := range names {
		r := report{Candidate: name}
		h, err := ld.Open(name)
		if err != nil || h == 0 {
			r.Error = fmt.Sprintf("%v", err)
		} else {
			r.Opened = true
			_ = ld.Close(h)
		}
		reports = append(reports, r)
	}
	if d {
		spew.Dump(reports)
	}
	for _, r := range reports {
		if r.Opened {
			log.Printf("opened %s", r.Candidate)
		} else {
			log.Printf("failed %s: %s", r.Candidate, r.Error)
		}
	}
	return nil
}

func sym(ctx *cli.Context) error {
	d := ctx.Bool("debug")
	s := NewWith(System(), ctx.StringSlice("lib"), d)
	for _, name := range ctx.Args().Slice() {
		v, err := s.Resolve(name)
		if err != nil {
			log.Printf("%s: %v", name, err)
			continue
		}
		log.Printf("%s: %#x", name, uintptr(v))
	}
	if d && s.Opened() {
		spew.Dump(s.Library().Name(), s.Names())
	}
	return nil
}

func call(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	args := ctx.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("missing symbol name")
	}
	var words []uintptr
	for _, a := range args[1:] {
		var v uint64
		if v, err = strconv.ParseUint(a, 0, 64); err != nil {
			return fmt.Errorf("argument %q: %w", a, err)
		}
		words = append(words, uintptr(v))
	}
	s := NewWith(System(), ctx.StringSlice("lib"), d)
	r1, r2, err := s.Bind(args[0]).Call(words...)
	if err != nil {
		return err
	}
	log.Printf("%s => %#x %#x", args[0], r1, r2)
	return nil
}
