// Command wagateway-qr is an operator tool: print a session's current
// pairing QR straight to the terminal instead of going through the
// dashboard's image endpoint. Handy when pairing a session from a box with
// no browser attached.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/mdp/qrterminal/v3"
)

func main() {
	sessionID := flag.String("session", "", "session id to print the pairing QR for")
	flag.Parse()

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: wagateway-qr -session <session_id>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect db:", err)
		os.Exit(1)
	}
	defer database.Close()

	sessions := repositories.NewSessionRepository(database.DB)
	session, err := sessions.GetBySessionID(*sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lookup session:", err)
		os.Exit(1)
	}
	if session.QRCode == nil || *session.QRCode == "" {
		fmt.Fprintln(os.Stderr, "session has no pending QR code (already paired, or not yet initialized)")
		os.Exit(1)
	}

	qrterminal.GenerateWithConfig(*session.QRCode, qrterminal.Config{
		Level:     qrterminal.M,
		Writer:    os.Stdout,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})
}
