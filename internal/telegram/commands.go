package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/service"
)

const usage = `Send a photo to watermark it. Send a photo with the caption "watermark" to use it as the image watermark.
/text <words> - watermark text
/mode text|custom - text or image watermark
/opacity <0-100> - opacity in percent
/rotation <0-360> - rotation in degrees
/density <1-5|min|low|medium|high|max>
/color <rrggbb> - text color
/font <family> - ` + "Roboto, Times New Roman" + `
/size <points>
/weight <100-900>
/italic, /underline, /strike - toggle
/go - apply the watermark
/reset - discard the result
/settings - show the current settings
/save - remember the settings
/export - store the result and get its location`

var errUsage = errors.New("usage")

var densityNames = map[string]domain.DensityLevel{
	"min":    domain.DensityMin,
	"low":    domain.DensityLow,
	"medium": domain.DensityMedium,
	"high":   domain.DensityHigh,
	"max":    domain.DensityMax,
}

// commandEnv is what command handlers may use besides the session
type commandEnv struct {
	manager  *service.SessionManager
	exporter service.Exporter
}

type commandFunc func(ctx context.Context, env commandEnv, s *service.Session, args string) (string, error)

var commands = map[string]commandFunc{
	"start":     cmdHelp,
	"help":      cmdHelp,
	"text":      cmdText,
	"mode":      cmdMode,
	"opacity":   cmdOpacity,
	"rotation":  cmdRotation,
	"density":   cmdDensity,
	"color":     cmdColor,
	"font":      cmdFont,
	"size":      cmdSize,
	"weight":    cmdWeight,
	"italic":    cmdItalic,
	"underline": toggleDecoration(domain.DecorationUnderline, "Underline"),
	"strike":    toggleDecoration(domain.DecorationLineThrough, "Strikethrough"),
	"go":        cmdGo,
	"reset":     cmdReset,
	"settings":  cmdSettings,
	"save":      cmdSave,
	"export":    cmdExport,
}

// runCommand executes command name and returns the reply for the chat
func runCommand(ctx context.Context, env commandEnv, s *service.Session, name, args string) string {
	cmd, ok := commands[strings.ToLower(name)]
	if !ok {
		return "Unknown command. " + usage
	}
	reply, err := cmd(ctx, env, s, strings.TrimSpace(args))
	if errors.Is(err, errUsage) {
		return "Usage: /" + name + " " + strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	}
	if err != nil {
		return "Not changed: " + err.Error()
	}
	return reply
}

func usageError(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func cmdHelp(context.Context, commandEnv, *service.Session, string) (string, error) {
	return usage, nil
}

func cmdText(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	if args == "" {
		return "", usageError("<words>")
	}
	err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) { p.Text = args })
	if err != nil {
		return "", err
	}
	s.SetMode(domain.ModeText)
	return fmt.Sprintf("Text set to %q", args), nil
}

func cmdMode(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	m, err := domain.ParseMode(args)
	if err != nil {
		return "", usageError("text|custom")
	}
	s.SetMode(m)
	if m == domain.ModeCustom && !s.HasWatermark() {
		return "Mode: custom. Send a photo with the caption \"watermark\" to set the watermark image.", nil
	}
	return "Mode: " + m.String(), nil
}

func cmdOpacity(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	percent, err := strconv.ParseFloat(strings.TrimSuffix(args, "%"), 64)
	if err != nil || percent < 0 || percent > 100 {
		return "", usageError("<0-100>")
	}
	opacity := percent / 100
	if err := updateForMode(s,
		func(p *domain.TextWatermarkParams) { p.Opacity = domain.Ptr(opacity) },
		func(p *domain.CustomWatermarkParams) { p.Opacity = domain.Ptr(opacity) },
	); err != nil {
		return "", err
	}
	return "Opacity: " + domain.OpacityPercent(opacity), nil
}

func cmdRotation(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	degrees, err := strconv.Atoi(strings.TrimSuffix(args, "°"))
	if err != nil || degrees < 0 || degrees > 360 {
		return "", usageError("<0-360>")
	}
	if err := updateForMode(s,
		func(p *domain.TextWatermarkParams) { p.RotationAngle = domain.Ptr(degrees) },
		func(p *domain.CustomWatermarkParams) { p.RotationAngle = domain.Ptr(degrees) },
	); err != nil {
		return "", err
	}
	return fmt.Sprintf("Rotation: %d°", degrees), nil
}

func cmdDensity(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	level, err := parseDensity(args)
	if err != nil {
		return "", usageError("<1-5|min|low|medium|high|max>")
	}
	if err := updateForMode(s,
		func(p *domain.TextWatermarkParams) { p.DensityLevel = domain.Ptr(level) },
		func(p *domain.CustomWatermarkParams) { p.DensityLevel = domain.Ptr(level) },
	); err != nil {
		return "", err
	}
	return fmt.Sprintf("Density: %d", int(level)), nil
}

func cmdColor(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	hex, err := domain.NormalizeHex(args)
	if err != nil {
		return "", usageError("<rrggbb>")
	}
	if err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) { p.Color = domain.Ptr(hex) }); err != nil {
		return "", err
	}
	return "Color: #" + hex, nil
}

func cmdFont(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	for _, family := range domain.SupportedFontFamilies {
		if strings.EqualFold(family, args) {
			if err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) { p.FontFamily = domain.Ptr(family) }); err != nil {
				return "", err
			}
			return "Font: " + family, nil
		}
	}
	return "", usageError("<" + strings.Join(domain.SupportedFontFamilies, "|") + ">")
}

func cmdSize(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	size, err := strconv.Atoi(args)
	valid := err == nil
	if valid {
		valid = false
		for _, allowed := range domain.FontSizes {
			if size == allowed {
				valid = true
				break
			}
		}
	}
	if !valid {
		sizes := make([]string, len(domain.FontSizes))
		for i, v := range domain.FontSizes {
			sizes[i] = strconv.Itoa(v)
		}
		return "", usageError("<" + strings.Join(sizes, "|") + ">")
	}
	if err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) { p.FontSize = domain.Ptr(size) }); err != nil {
		return "", err
	}
	return fmt.Sprintf("Font size: %d", size), nil
}

func cmdWeight(_ context.Context, _ commandEnv, s *service.Session, args string) (string, error) {
	v, err := strconv.Atoi(args)
	if err != nil {
		return "", usageError("<100-900>")
	}
	weight, err := domain.NewFontWeight(v)
	if err != nil {
		return "", usageError("<100-900>")
	}
	if err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) { p.FontWeight = domain.Ptr(weight) }); err != nil {
		return "", err
	}
	return fmt.Sprintf("Font weight: %d", v), nil
}

func cmdItalic(_ context.Context, _ commandEnv, s *service.Session, _ string) (string, error) {
	var on bool
	err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) {
		on = p.FontItalic == nil || !*p.FontItalic
		p.FontItalic = domain.Ptr(on)
	})
	if err != nil {
		return "", err
	}
	return "Italic: " + onOff(on), nil
}

func toggleDecoration(flag domain.FontDecorations, label string) commandFunc {
	return func(_ context.Context, _ commandEnv, s *service.Session, _ string) (string, error) {
		var on bool
		err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) {
			var d domain.FontDecorations
			if p.FontDecorations != nil {
				d = *p.FontDecorations
			}
			d ^= flag
			on = d.Has(flag)
			p.FontDecorations = domain.Ptr(d)
		})
		if err != nil {
			return "", err
		}
		return label + ": " + onOff(on), nil
	}
}

func cmdGo(ctx context.Context, _ commandEnv, s *service.Session, _ string) (string, error) {
	if s.Mode() == domain.ModeCustom && !s.HasWatermark() {
		return "Send a photo with the caption \"watermark\" first.", nil
	}
	if sub := s.Submit(ctx); sub == nil {
		return "Send a photo first.", nil
	}
	return "Working on it…", nil
}

func cmdReset(_ context.Context, _ commandEnv, s *service.Session, _ string) (string, error) {
	s.Reset()
	return "Result discarded.", nil
}

func cmdSettings(_ context.Context, _ commandEnv, s *service.Session, _ string) (string, error) {
	return describe(s.Snapshot()), nil
}

func cmdSave(ctx context.Context, env commandEnv, s *service.Session, _ string) (string, error) {
	if err := env.manager.SavePreset(ctx, s.ID()); err != nil {
		return "", err
	}
	return "Settings saved.", nil
}

func cmdExport(ctx context.Context, env commandEnv, s *service.Session, _ string) (string, error) {
	location, ok := s.Export(ctx, env.exporter)
	if !ok {
		return "Nothing to export.", nil
	}
	return "Exported to " + location, nil
}

// updateForMode applies the edit that matches the session's current mode
func updateForMode(s *service.Session, text func(p *domain.TextWatermarkParams), custom func(p *domain.CustomWatermarkParams)) error {
	if s.Mode() == domain.ModeCustom {
		return s.UpdateCustomParams(custom)
	}
	return s.UpdateTextParams(text)
}

func parseDensity(args string) (domain.DensityLevel, error) {
	if level, ok := densityNames[strings.ToLower(args)]; ok {
		return level, nil
	}
	v, err := strconv.Atoi(args)
	if err != nil {
		return 0, err
	}
	return domain.NewDensityLevel(v)
}

func describe(snap service.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s\n", snap.Mode)
	if snap.Mode == domain.ModeCustom {
		c := snap.Custom
		fmt.Fprintf(&b, "Watermark image: %s\n", yesNo(snap.HasWatermark))
		if c.Opacity != nil {
			fmt.Fprintf(&b, "Opacity: %s\n", domain.OpacityPercent(*c.Opacity))
		}
		if c.RotationAngle != nil {
			fmt.Fprintf(&b, "Rotation: %d°\n", *c.RotationAngle)
		}
		if c.DensityLevel != nil {
			fmt.Fprintf(&b, "Density: %d\n", int(*c.DensityLevel))
		}
	} else {
		t := snap.Text
		fmt.Fprintf(&b, "Text: %q\n", t.Text)
		if t.FontFamily != nil && t.FontSize != nil {
			fmt.Fprintf(&b, "Font: %s %d\n", *t.FontFamily, *t.FontSize)
		}
		if t.Color != nil {
			fmt.Fprintf(&b, "Color: #%s\n", *t.Color)
		}
		if t.Opacity != nil {
			fmt.Fprintf(&b, "Opacity: %s\n", domain.OpacityPercent(*t.Opacity))
		}
		if t.RotationAngle != nil {
			fmt.Fprintf(&b, "Rotation: %d°\n", *t.RotationAngle)
		}
		if t.DensityLevel != nil {
			fmt.Fprintf(&b, "Density: %d\n", int(*t.DensityLevel))
		}
		if t.FontWeight != nil {
			fmt.Fprintf(&b, "Weight: %d\n", int(*t.FontWeight))
		}
		if t.FontItalic != nil {
			fmt.Fprintf(&b, "Italic: %s\n", onOff(*t.FontItalic))
		}
		if t.FontDecorations != nil {
			fmt.Fprintf(&b, "Underline: %s\n", onOff(t.FontDecorations.Has(domain.DecorationUnderline)))
			fmt.Fprintf(&b, "Strikethrough: %s\n", onOff(t.FontDecorations.Has(domain.DecorationLineThrough)))
		}
	}
	fmt.Fprintf(&b, "Picture: %s\nState: %s", yesNo(snap.HasPicture), snap.Outcome.State)
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
