// demtool is a CLI utility for inspecting elevation grids and the GRF
// archives that carry them.
package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Faultbox/relief/pkg/dem"
	"github.com/Faultbox/relief/pkg/grf"
	"github.com/Faultbox/relief/pkg/hillshade"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "list", "ls":
		err = cmdList(args)
	case "extract", "x":
		err = cmdExtract(args)
	case "pack":
		err = cmdPack(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`demtool - elevation grid utility

Usage:
  demtool <command> [options]

Commands:
  info [-format f] <dem>               Show grid shape and elevation stats
  info -entry <name> <file.grf>        Same, for a grid stored in an archive
  list [-all] <file.grf> [pattern]     List elevation entries (*.gat, *.gnd)
  extract <file.grf> <entry> [output]  Extract an entry to a file or directory
  pack <out.grf> <file>...             Store files under data/ in a new archive

Examples:
  demtool info terrain.npy
  demtool info -entry data/prontera.gnd data.grf
  demtool list data.grf "prt_*"
  demtool extract data.grf data/prontera.gat ./maps
  demtool pack maps.grf prontera.gat prontera.gnd`)
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	format := fs.String("format", "", "Input format (npy, asc, gat, gnd)")
	entry := fs.String("entry", "", "Entry inside the GRF archive")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: demtool info [-format f] [-entry name] <file>")
	}

	f, err := dem.ParseFormat(*format)
	if err != nil {
		return err
	}

	name := fs.Arg(0)
	var g hillshade.Grid
	if *entry == "" {
		g, err = dem.Open(name, f)
	} else {
		g, err = readEntry(name, *entry, f)
		name += ":" + *entry
	}
	if err != nil {
		return err
	}

	s := dem.Describe(g)
	fmt.Printf("Grid:      %s\n", name)
	fmt.Printf("Shape:     %d x %d\n", s.Rows, s.Cols)
	fmt.Printf("Min:       %g\n", s.Min)
	fmt.Printf("Max:       %g\n", s.Max)
	fmt.Printf("Mean:      %g\n", s.Mean)
	if s.NonFinite > 0 {
		fmt.Printf("NoData:    %d cells\n", s.NonFinite)
	}
	return nil
}

func readEntry(archivePath, entry string, f dem.Format) (hillshade.Grid, error) {
	archive, err := grf.Open(archivePath)
	if err != nil {
		return hillshade.Grid{}, err
	}
	defer archive.Close()

	data, err := archive.Read(entry)
	if err != nil {
		return hillshade.Grid{}, err
	}
	if f == dem.FormatUnknown {
		f = dem.FormatFromPath(entry)
	}
	return dem.DecodeBytes(data, f)
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	all := fs.Bool("all", false, "List every entry, not only elevation files")
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: demtool list [-all] <file.grf> [pattern]")
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	files := archive.List()
	if fs.NArg() > 1 {
		pattern := fs.Arg(1)
		if !strings.ContainsAny(pattern, "*?[") {
			pattern = "*" + pattern + "*"
		}
		if files, err = archive.Match(pattern); err != nil {
			return err
		}
	}

	count := 0
	for _, f := range files {
		if !*all && dem.FormatFromPath(f) == dem.FormatUnknown {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	fmt.Fprintf(os.Stderr, "\n(%d files)\n", count)
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: demtool extract <file.grf> <entry> [output]")
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	entry := fs.Arg(1)
	data, err := archive.Read(entry)
	if err != nil {
		return err
	}

	// An existing directory (or none given) receives the entry's base name.
	out := "."
	if fs.NArg() > 2 {
		out = fs.Arg(2)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		base := path.Base(strings.ReplaceAll(entry, "\\", "/"))
		out = filepath.Join(out, strings.ToLower(base))
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	fmt.Printf("Extracted: %s (%d bytes)\n", out, len(data))
	return nil
}

func cmdPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	prefix := fs.String("prefix", "data", "Directory the files are stored under")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: demtool pack [-prefix dir] <out.grf> <file>...")
	}

	var files []grf.File
	for _, name := range fs.Args()[1:] {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		files = append(files, grf.File{
			Name: path.Join(*prefix, filepath.Base(name)),
			Data: data,
		})
	}

	if err := grf.Create(fs.Arg(0), files); err != nil {
		return err
	}
	fmt.Printf("Packed %d files into %s\n", len(files), fs.Arg(0))
	return nil
}
