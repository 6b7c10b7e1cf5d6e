// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ezrec/uchip8/cpu"
	"github.com/ezrec/uchip8/emulator"
)

// keymap maps each CHIP-8 key 0-F to its keyboard character, the
// conventional 1234/qwer/asdf/zxcv layout.
const keymap = "x123qweasdzc4rfv"

// KEY_HOLD_TICKS is how long a keyboard press stays held on the keypad,
// since a terminal reports presses but never releases.
const KEY_HOLD_TICKS = 30

// pollKeys reads raw keyboard bytes into a channel.
func pollKeys(keys chan<- int) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		if buf[0] == 0x03 { // ^C
			close(keys)
			return
		}
		key := strings.IndexByte(keymap, buf[0])
		if key >= 0 {
			select {
			case keys <- key:
			default:
			}
		}
	}
}

func main() {
	var compile string
	var rom string
	var output string
	var save bool
	var ticks int
	var interactive bool
	var dump bool
	var verbose bool

	flag.StringVar(&compile, "c", "", "assembly source to compile")
	flag.StringVar(&rom, "r", "", ".ch8 ROM image to run")
	flag.StringVar(&output, "o", "", "ROM image to write")
	flag.BoolVar(&save, "s", false, "Save ROM image, do not execute")
	flag.IntVar(&ticks, "n", 0, "Maximum ticks to execute (0 for default)")
	flag.BoolVar(&interactive, "k", false, "Interactive keypad from the terminal")
	flag.BoolVar(&dump, "d", false, "Dump the display after execution")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Compile a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	if save {
		if len(output) == 0 {
			log.Fatalf("%v: -s requires -o", os.Args[0])
		}
		err := os.WriteFile(output, emu.Program.Binary(), 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	var err error
	if len(rom) != 0 {
		err = emu.LoadFile(rom)
	} else {
		err = emu.Reset()
	}
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	if !interactive {
		ran, err := emu.Run(ticks)
		if err != nil {
			log.Printf("%v: after %v ticks: %v", os.Args[0], ran, err)
		}
	} else {
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			log.Fatalf("%v: raw mode: %v", os.Args[0], err)
		}
		defer term.Restore(int(os.Stdin.Fd()), state)

		keys := make(chan int, 8)
		go pollKeys(keys)

		held := -1
		release := 0
		if ticks <= 0 {
			ticks = emulator.TICK_LIMIT
		}
		for n := 0; n < ticks; n++ {
			select {
			case key, ok := <-keys:
				if !ok {
					n = ticks
					continue
				}
				if held >= 0 {
					emu.SetKey(held, false)
				}
				emu.SetKey(key, true)
				held = key
				release = n + KEY_HOLD_TICKS
			default:
			}
			if held >= 0 && n >= release {
				emu.SetKey(held, false)
				held = -1
			}

			err = emu.Tick()
			if err != nil {
				log.Printf("%v: after %v ticks: %v", os.Args[0], n, err)
				break
			}
			time.Sleep(2 * time.Millisecond)
		}
	}

	if emu.Beeps > 0 {
		log.Printf("%v: %v beeps", os.Args[0], emu.Beeps)
	}

	if dump {
		emu.Screen.Render(os.Stdout)
	}
}
