package view

import (
	"strings"

	"github.com/skip2/go-qrcode"

	"tunnelctl/internal/tui/design"
)

// renderWalletQR draws addr as a half-block QR code, two modules per
// character row, so a TON address fits inside the pool modal.
func renderWalletQR(addr string) string {
	code, err := qrcode.New(addr, qrcode.Low)
	if err != nil {
		return design.TextErrorStyle.Render("Cannot draw QR code: " + err.Error())
	}
	return strings.TrimRight(code.ToSmallString(false), "\n")
}
