package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/dustin/go-humanize"
	"github.com/raine/vendepro/internal/gate"
	"github.com/raine/vendepro/internal/history"
	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/photo"
	"github.com/raine/vendepro/internal/sections"
	"github.com/raine/vendepro/internal/workflow"
	"github.com/rs/zerolog/log"
)

var errQuit = errors.New("quit")

// app is the interactive terminal front end. It only talks to the core
// through the gate, the history store and the workflow machine.
type app struct {
	out       io.Writer
	gate      *gate.Gate
	history   *history.Store
	machine   *workflow.Machine
	loader    *photo.Loader
	outputDir string
	copy      func(string) error
}

func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) run(ctx context.Context) error {
	a.printf("\n%s\n%s\n\n", titleStyle.Render(MsgAppTitle), subtleStyle.Render(MsgAppSubtitle))

	if err := a.unlock(ctx); err != nil {
		return quitOnAbort(err)
	}

	for {
		var choice string
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Options(huh.NewOptions(MenuSell, MenuHistory, MenuTips, MenuQuit)...).
				Value(&choice),
		)).WithTheme(huh.ThemeBase16())
		if err := form.RunWithContext(ctx); err != nil {
			return quitOnAbort(err)
		}

		var err error
		switch choice {
		case MenuSell:
			err = a.sell(ctx)
		case MenuHistory:
			err = a.showHistory(ctx)
		case MenuTips:
			a.printf("%s\n", tipsText())
		case MenuQuit:
			a.printf("%s\n", MsgGoodbye)
			return errQuit
		}
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
	}
}

func quitOnAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errQuit
	}
	return err
}

// unlock shows the PIN screen until the gate opens.
func (a *app) unlock(ctx context.Context) error {
	for !a.gate.IsAuthorized() {
		var pin string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(MsgPINTitle).
				Description(MsgPINDescription).
				EchoMode(huh.EchoModePassword).
				CharLimit(gate.PINLength).
				Value(&pin).
				Validate(func(s string) error {
					if !gate.ValidPIN(s) {
						return gate.ErrInvalidPIN
					}
					return nil
				}),
		)).WithTheme(huh.ThemeBase16())
		if err := form.RunWithContext(ctx); err != nil {
			return err
		}

		if err := enterPIN(a.gate, pin); err != nil && !errors.Is(err, gate.ErrIncorrectPIN) {
			return err
		}
		if a.gate.HasError() {
			a.printf("%s\n", errorStyle.Render(MsgPINIncorrect))
			a.gate.Wait()
		}
	}
	a.printf("%s\n\n", successStyle.Render(MsgPINUnlocked))
	return nil
}

// enterPIN feeds pin to the gate one digit at a time, discarding any
// partial entry first.
func enterPIN(g *gate.Gate, pin string) error {
	for g.Entered() > 0 {
		g.DeleteLastDigit()
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return gate.ErrInvalidDigit
		}
		if err := g.SubmitDigit(int(r - '0')); err != nil {
			return err
		}
	}
	return nil
}

// sell drives the workflow from wherever the machine currently is.
func (a *app) sell(ctx context.Context) error {
	for {
		var (
			next bool
			err  error
		)
		switch a.machine.Step() {
		case workflow.StepUpload:
			next, err = a.capturePhoto(ctx)
		case workflow.StepDetails:
			next, err = a.editAndSubmit(ctx)
		case workflow.StepResults:
			next, err = a.results(ctx)
		default:
			return fmt.Errorf("unexpected step %s", a.machine.Step())
		}
		if err != nil || !next {
			return err
		}
	}
}

func (a *app) capturePhoto(ctx context.Context) (bool, error) {
	var src string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(MsgPhotoTitle).
			Description(MsgPhotoDescription).
			Value(&src),
	)).WithTheme(huh.ThemeBase16())
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	if strings.TrimSpace(src) == "" {
		return false, nil
	}

	var (
		data    []byte
		loadErr error
	)
	err := spinner.New().
		Title(MsgPhotoLoading).
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			data, loadErr = a.loader.Load(ctx, src)
			return nil
		}).
		Run()
	if err != nil {
		return false, err
	}
	if loadErr != nil {
		log.Warn().Err(loadErr).Str("src", src).Msg("failed to load photo")
		a.printf("%s\n", errorStyle.Render(fmt.Sprintf(MsgPhotoFailed, loadErr)))
		return true, nil
	}

	if err := a.machine.CaptureImage(data); err != nil {
		return false, err
	}
	a.printf("%s\n", successStyle.Render(fmt.Sprintf(MsgPhotoLoaded, humanize.Bytes(uint64(len(data))))))
	return true, nil
}

// editAndSubmit shows the details form and runs the analysis. A failed
// analysis comes back here with the previous values filled in.
func (a *app) editAndSubmit(ctx context.Context) (bool, error) {
	s := a.machine.Snapshot()
	if s.Error != "" {
		a.printf("%s\n", errorStyle.Render(s.Error))
	}

	details := s.Details
	analyze := true
	form := detailsForm(&details, &analyze)
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}

	if err := a.machine.UpdateDetails(func(d *listing.Details) { *d = details }); err != nil {
		return false, err
	}
	if !analyze {
		return false, nil
	}

	var submitErr error
	err := spinner.New().
		Title(MsgAnalyzing).
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			submitErr = a.machine.Submit(ctx)
			return nil
		}).
		Run()
	if err != nil {
		return false, err
	}
	if submitErr != nil && !errors.Is(submitErr, workflow.ErrAnalysisFailed) {
		return false, submitErr
	}
	return true, nil
}

func detailsForm(details *listing.Details, analyze *bool) *huh.Form {
	platforms := make([]huh.Option[listing.Platform], 0, len(listing.Platforms))
	for _, p := range listing.Platforms {
		platforms = append(platforms, huh.NewOption(string(p), p))
	}
	urgencies := make([]huh.Option[listing.Urgency], 0, len(listing.Urgencies))
	for _, u := range listing.Urgencies {
		urgencies = append(urgencies, huh.NewOption(u.Label(), u))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[listing.Platform]().
				Title(MsgPlatformTitle).
				Options(platforms...).
				Value(&details.Platform),
			huh.NewInput().
				Title(MsgMinPriceTitle).
				Description(MsgMinPriceHint).
				Value(&details.MinPrice).
				Validate(validateMinPrice),
			huh.NewSelect[listing.Urgency]().
				Title(MsgUrgencyTitle).
				Options(urgencies...).
				Value(&details.Urgency),
			huh.NewInput().
				Title(MsgDeliveryTitle).
				Value(&details.Delivery),
			huh.NewConfirm().
				Title(MsgAnalyzeNow).
				Affirmative("Analizar").
				Negative("Más tarde").
				Value(analyze),
		).Title(MsgDetailsTitle),
	).WithTheme(huh.ThemeBase16())
}

// validateMinPrice accepts an empty value or a non-negative decimal with
// either a dot or a comma.
func validateMinPrice(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || v < 0 {
		return errors.New(MsgMinPriceInvalid)
	}
	return nil
}

type actionKind int

const (
	actionCopy actionKind = iota
	actionEnhance
	actionSaveImage
	actionNew
	actionBack
)

type resultAction struct {
	kind    actionKind
	label   string
	section int
}

// resultActions lists what can be done with the results on screen. The
// enhance action disappears once the photo has been enhanced.
func resultActions(s workflow.Session, secs []sections.Section) []resultAction {
	var actions []resultAction
	for i, sec := range secs {
		if sec.IsPlainText() {
			actions = append(actions, resultAction{kind: actionCopy, label: copyLabel(sec), section: i})
		}
	}
	if len(s.EnhancedImage) == 0 {
		actions = append(actions, resultAction{kind: actionEnhance, label: ActionEnhance})
	} else {
		actions = append(actions, resultAction{kind: actionSaveImage, label: ActionSaveImage})
	}
	return append(actions,
		resultAction{kind: actionNew, label: ActionNewListing},
		resultAction{kind: actionBack, label: ActionBack},
	)
}

func (a *app) results(ctx context.Context) (bool, error) {
	secs := a.machine.Sections()
	s := a.machine.Snapshot()
	a.printf("\n%s\n", renderSections(secs))
	if s.Analysis != nil {
		if sources := renderSources(s.Analysis.MarketURLs); sources != "" {
			a.printf("\n%s\n", sources)
		}
	}
	a.printf("\n")

	for {
		s = a.machine.Snapshot()
		actions := resultActions(s, secs)
		options := make([]huh.Option[int], len(actions))
		for i, act := range actions {
			options[i] = huh.NewOption(act.label, i)
		}

		var picked int
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[int]().
				Title(MsgActionsTitle).
				Options(options...).
				Value(&picked),
		)).WithTheme(huh.ThemeBase16())
		if err := form.RunWithContext(ctx); err != nil {
			return false, err
		}

		act := actions[picked]
		switch act.kind {
		case actionCopy:
			text := sections.CleanForClipboard(secs[act.section].Content)
			if err := a.copy(text); err != nil {
				log.Warn().Err(err).Msg("clipboard copy failed")
				a.printf("%s\n", errorStyle.Render(fmt.Sprintf(MsgCopyFailed, err)))
			} else {
				a.printf("%s\n", successStyle.Render(MsgCopied))
			}
		case actionEnhance:
			if err := a.enhance(ctx); err != nil {
				return false, err
			}
		case actionSaveImage:
			path, err := photo.SaveEnhanced(a.outputDir, enhancedFileID(s), s.EnhancedImage)
			if err != nil {
				a.printf("%s\n", errorStyle.Render(fmt.Sprintf(MsgUnexpectedErr, err)))
				continue
			}
			a.printf("%s\n", successStyle.Render(fmt.Sprintf(MsgEnhancedSaved, path)))
		case actionNew:
			a.machine.Reset()
			return true, nil
		case actionBack:
			return false, nil
		}
	}
}

func (a *app) enhance(ctx context.Context) error {
	var (
		enhanced   bool
		enhanceErr error
	)
	err := spinner.New().
		Title(MsgEnhancing).
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			enhanced, enhanceErr = a.machine.Enhance(ctx)
			return nil
		}).
		Run()
	if err != nil {
		return err
	}
	if enhanceErr != nil {
		log.Warn().Err(enhanceErr).Msg("enhance rejected")
	}
	if enhanced {
		a.printf("%s\n", successStyle.Render(MsgEnhanced))
	} else {
		a.printf("%s\n", subtleStyle.Render(MsgEnhanceUnchanged))
	}
	return nil
}

func enhancedFileID(s workflow.Session) string {
	if s.HistoryID != "" {
		return s.HistoryID
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (a *app) showHistory(ctx context.Context) error {
	for {
		items := a.history.List()
		if len(items) == 0 {
			a.printf("%s\n\n", subtleStyle.Render(MsgHistoryEmpty))
			return nil
		}

		now := time.Now()
		options := make([]huh.Option[string], 0, len(items)+2)
		for _, item := range items {
			options = append(options, huh.NewOption(historyLine(item, now), item.ID))
		}
		options = append(options,
			huh.NewOption(ActionClearAll, ActionClearAll),
			huh.NewOption(ActionBack, ActionBack),
		)

		var picked string
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title(MsgHistoryTitle).
				Options(options...).
				Value(&picked),
		)).WithTheme(huh.ThemeBase16())
		if err := form.RunWithContext(ctx); err != nil {
			return err
		}

		switch picked {
		case ActionBack:
			return nil
		case ActionClearAll:
			confirm := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().Title(MsgConfirmClear).Affirmative("Sí").Negative("No").Value(&confirm),
			)).WithTheme(huh.ThemeBase16())
			if err := form.RunWithContext(ctx); err != nil {
				return err
			}
			if confirm {
				if err := a.history.Clear(); err != nil {
					return err
				}
				a.printf("%s\n", successStyle.Render(MsgHistoryCleared))
			}
		default:
			item, ok := a.history.Get(picked)
			if !ok {
				continue
			}
			a.machine.LoadFromHistory(item)
			// results leave the machine in Upload after "new"; continue in sell
			next, err := a.results(ctx)
			if err != nil {
				return err
			}
			if next {
				return a.sell(ctx)
			}
		}
	}
}
