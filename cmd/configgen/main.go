package main

import (
	"log"

	"github.com/danmuck/wadispatch/internal/config"
	flag "github.com/spf13/pflag"
)

const defaultPath = "cmd/dispatchctl/config.toml"

func main() {
	output := flag.StringP("output", "o", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.StringP("input", "i", defaultPath, "config path for validation")
	force := flag.BoolP("force", "f", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated dispatch config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote dispatch config template to %s", *output)
}
