// Package prompt fills a form session from a terminal, one visible section
// at a time, using survey prompts.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

const defaultPageSize = 10

// TextConfig configures a single-line or multiline answer.
type TextConfig struct {
	Message string
	Default string
	Help    string
}

// ConfirmConfig configures a yes/no question.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// ChoiceConfig configures a pick from Options. Answers are indices into
// Options; Default is ignored when negative, Defaults when empty.
type ChoiceConfig struct {
	Message  string
	Options  []string
	Default  int
	Defaults []int
	Help     string
}

// Driver is the terminal seen by a Filler. Tests script it.
type Driver interface {
	Text(ctx context.Context, cfg TextConfig) (string, error)
	Multiline(ctx context.Context, cfg TextConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Choose(ctx context.Context, cfg ChoiceConfig) (int, error)
	ChooseMany(ctx context.Context, cfg ChoiceConfig) ([]int, error)
	Note(ctx context.Context, msg string) error
}

// DriverOption configures the survey driver.
type DriverOption func(*surveyDriver)

// WithStdio points the prompts and notes at the given streams.
func WithStdio(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) DriverOption {
	return func(d *surveyDriver) {
		d.out = out
		d.askOpts = append(d.askOpts, survey.WithStdio(in, out, errOut))
	}
}

// WithPageSize sets how many options a choice shows at once.
func WithPageSize(n int) DriverOption {
	return func(d *surveyDriver) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

type surveyDriver struct {
	out      io.Writer
	pageSize int
	askOpts  []survey.AskOpt
}

// NewSurveyDriver returns a Driver on the process terminal unless WithStdio
// says otherwise.
func NewSurveyDriver(options ...DriverOption) Driver {
	d := &surveyDriver{out: os.Stdout, pageSize: defaultPageSize}
	for _, opt := range options {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// ask runs one survey prompt. Ctrl-C surfaces as ErrAborted.
func (d *surveyDriver) ask(ctx context.Context, p survey.Prompt, response any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(p, response, d.askOpts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func (d *surveyDriver) Text(ctx context.Context, cfg TextConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Input{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *surveyDriver) Multiline(ctx context.Context, cfg TextConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Multiline{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := d.ask(ctx, &survey.Confirm{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

// Choose answers with the picked index; survey writes indices into int
// responses.
func (d *surveyDriver) Choose(ctx context.Context, cfg ChoiceConfig) (int, error) {
	p := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: d.pageSize}
	if cfg.Default >= 0 && cfg.Default < len(cfg.Options) {
		p.Default = cfg.Default
	}
	var answer int
	if err := d.ask(ctx, p, &answer); err != nil {
		return -1, err
	}
	return answer, nil
}

func (d *surveyDriver) ChooseMany(ctx context.Context, cfg ChoiceConfig) ([]int, error) {
	p := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: d.pageSize}
	if len(cfg.Defaults) > 0 {
		p.Default = cfg.Defaults
	}
	var answer []int
	if err := d.ask(ctx, p, &answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (d *surveyDriver) Note(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}
