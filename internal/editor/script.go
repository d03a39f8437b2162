package editor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clinic/panel/internal/domain/availability"
)

// Script feeds line-oriented commands to an Editor. Each line is one pointer
// event, dialog answer or query:
//
//	doctors               list the roster
//	select <id>           load a doctor's schedule
//	down <day> <HH:MM>    pointer pressed on a cell
//	enter <day> <HH:MM>   pointer entered a cell
//	up | leave            pointer released or left the grid
//	resolve <clinic-id>   answer the clinic choice
//	cancel                dismiss the clinic choice
//	show                  print the grid
//	blocks                print the blocks a save would send
//	save                  replace the stored schedule
//
// Blank lines and lines starting with # are ignored.
type Script struct {
	ed  *Editor
	out io.Writer

	// StopOnError aborts Run at the first failing command.
	StopOnError bool
}

func NewScript(ed *Editor, out io.Writer) *Script {
	return &Script{ed: ed, out: out}
}

// Run executes every line of r and returns the number of failed commands.
func (s *Script) Run(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	failures := 0
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := s.Exec(ctx, text); err != nil {
			failures++
			fmt.Fprintf(s.out, "line %d: error: %v\n", line, err)
			if s.StopOnError {
				return failures, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return failures, fmt.Errorf("read script: %w", err)
	}
	return failures, nil
}

// Exec runs a single command.
func (s *Script) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "doctors":
		if err := s.ed.LoadRoster(ctx); err != nil {
			return err
		}
		for _, d := range s.ed.Doctors() {
			names := make([]string, 0, len(d.Clinics))
			for _, c := range d.Clinics {
				names = append(names, fmt.Sprintf("%d=%s", c.ID, c.Name))
			}
			fmt.Fprintf(s.out, "%d\t%s\t%s\n", d.ID, d.Name, strings.Join(names, ", "))
		}
		return nil

	case "select":
		id, err := intArg(args, "doctor id")
		if err != nil {
			return err
		}
		if len(s.ed.Doctors()) == 0 {
			if err := s.ed.LoadRoster(ctx); err != nil {
				return err
			}
		}
		if err := s.ed.SelectDoctor(ctx, id); err != nil {
			return err
		}

	case "down", "enter":
		day, tick, err := cellArgs(args)
		if err != nil {
			return err
		}
		if cmd == "down" {
			if err := s.ed.PointerDown(day, tick); err != nil {
				return err
			}
		} else {
			s.ed.PointerEnter(day, tick)
		}
		return nil

	case "up":
		if err := s.ed.PointerUp(); err != nil {
			return err
		}
		s.printChoice()
		return nil

	case "leave":
		if err := s.ed.PointerLeave(); err != nil {
			return err
		}
		s.printChoice()
		return nil

	case "resolve":
		id, err := intArg(args, "clinic id")
		if err != nil {
			return err
		}
		if err := s.ed.ChooseClinic(availability.ClinicID(id)); err != nil {
			return err
		}

	case "cancel":
		if err := s.ed.CancelChoice(); err != nil {
			return err
		}

	case "show":
		return s.show()

	case "blocks":
		blocks, err := s.ed.Blocks()
		if err != nil {
			return err
		}
		for _, b := range blocks {
			fmt.Fprintln(s.out, b)
		}
		return nil

	case "save":
		if err := s.ed.Save(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	fmt.Fprintln(s.out, s.ed.Status())
	return nil
}

func (s *Script) printChoice() {
	r := s.ed.PendingChoice()
	if r == nil {
		return
	}
	opts := r.Options()
	names := make([]string, 0, len(opts))
	for _, c := range opts {
		names = append(names, fmt.Sprintf("%d=%s", c.ID, c.Name))
	}
	fmt.Fprintf(s.out, "%s; choose one of: %s\n", s.ed.Status(), strings.Join(names, ", "))
}

// show prints one line per weekday in display order. '.' is empty, '?' is
// unassigned and letters index the doctor's clinics in roster order.
func (s *Script) show() error {
	doctor := s.ed.Doctor()
	if doctor == nil {
		return &availability.StateError{Op: "show", Err: availability.ErrNoDoctor}
	}
	letter := make(map[availability.ClinicID]byte, len(doctor.Clinics))
	for i, c := range doctor.Clinics {
		letter[availability.ClinicID(c.ID)] = byte('A' + i%26)
	}

	fmt.Fprintf(s.out, "%-4s%s\n", "", gridHeader())
	for _, row := range s.ed.Rows() {
		var b strings.Builder
		for _, c := range row.Cells {
			switch {
			case !c.Occupied:
				b.WriteByte('.')
			case c.Clinic == availability.Unassigned:
				b.WriteByte('?')
			default:
				if l, ok := letter[c.Clinic]; ok {
					b.WriteByte(l)
				} else {
					b.WriteByte('!')
				}
			}
		}
		fmt.Fprintf(s.out, "%-4s%s\n", row.Day.String()[:3], b.String())
	}
	for i, c := range doctor.Clinics {
		fmt.Fprintf(s.out, "%c=%s ", 'A'+i%26, c.Name)
	}
	fmt.Fprintln(s.out)
	return nil
}

// gridHeader marks the hours above the tick columns.
func gridHeader() string {
	var b strings.Builder
	for _, t := range availability.Ticks() {
		if int(t)%60 == 0 {
			b.WriteByte(byte('0' + (int(t)/60)%10))
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func intArg(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one %s", what)
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func cellArgs(args []string) (availability.Weekday, availability.Tick, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected <day> <HH:MM>")
	}
	day, err := availability.ParseWeekday(args[0])
	if err != nil {
		return 0, 0, err
	}
	tick, err := availability.ParseTick(args[1])
	if err != nil {
		return 0, 0, err
	}
	return day, tick, nil
}
