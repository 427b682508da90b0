package cmd

import (
	"fmt"
)

const banner = `
  ____  _                 _                  
 |  _ \| |__   __ _ _ __ | |_ ___  _ __ ___  
 | |_) | '_ \ / _` + "`" + ` | '_ \| __/ _ \| '_ ` + "`" + ` _ \ 
 |  __/| | | | (_| | | | | || (_) | | | | | |
 |_|   |_| |_|\__,_|_| |_|\__\___/|_| |_| |_|
                                             
`

func printBanner() {
	fmt.Printf("\x1b[35m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Blog Server - Version %s\x1b[0m\n\n", Version)
}
