package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserLogin drives a Chrome session through the Tado identity provider to
// complete a device-activation verification URL.
type BrowserLogin struct {
	Email         string
	Password      string
	Headless      bool
	ScreenshotDir string
	Timeout       time.Duration
	Log           *zap.SugaredLogger
}

// Run opens the verification URL, confirms the pre-filled device code, fills
// in the credentials and waits for the confirmation screen.
func (b *BrowserLogin) Run(ctx context.Context, verificationURL string) error {
	timeout := b.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if !b.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	actx, acancel := chromedp.NewExecAllocator(ctx, opts...)
	defer acancel()
	cctx, ccancel := chromedp.NewContext(actx)
	defer ccancel()

	var loginShot, confirmShot []byte
	err := chromedp.Run(cctx,
		chromedp.Navigate(verificationURL),
		chromedp.WaitVisible(`//button[contains(., "Submit")]`),
		chromedp.Click(`//button[contains(., "Submit")]`),
		chromedp.WaitVisible(`input[name="loginId"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input#loginId`, b.Email, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, b.Password, chromedp.ByQuery),
		chromedp.CaptureScreenshot(&loginShot),
		chromedp.Click(`button.c-btn--primary`, chromedp.ByQuery),
		chromedp.WaitVisible(`.message-screen`, chromedp.ByQuery),
		chromedp.CaptureScreenshot(&confirmShot),
	)

	b.writeScreenshot("login.png", loginShot)
	b.writeScreenshot("after-message.png", confirmShot)

	if err != nil {
		return fmt.Errorf("driving Tado login: %w", err)
	}
	return nil
}

func (b *BrowserLogin) writeScreenshot(name string, data []byte) {
	if b.ScreenshotDir == "" || len(data) == 0 {
		return
	}
	path := filepath.Join(b.ScreenshotDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		b.Log.Warnf("Failed to write screenshot %s: %v", path, err)
	}
}
