package main

import (
	"context"
	"encoding/hex"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"

	"github.com/aquavend/vmc/currency"
	"github.com/aquavend/vmc/hardware/vmc"
	"github.com/aquavend/vmc/helpers/cli"
	"github.com/aquavend/vmc/log2"
	"github.com/aquavend/vmc/state"
	"github.com/aquavend/vmc/tele"
	"github.com/aquavend/vmc/vend"
)

const usage = `syntax: commands separated by whitespace
(main)
- probe        get-device-id, check the board answers
- dispense=N   full dispense of slot N with status polling
- status=N     single query-status of slot N
- balance      query current balance
- clear        remove-fault broadcast
- coinchange   give coin change
- changestat   query coin change status
- cancel       cancel cashless payment
- debit=N      debit instruction for N cents
- pay=N        coin payment instruction for N cents
- age=N        age recognition, required age N
- agecheck     query age verification
- @XXYY..      raw frame: command byte XX, payload YY.., show response
- sN           pause N milliseconds

(meta)
- log=yes      enable debug logging
- log=no       disable debug logging
- loop=N       repeat N times all commands on this line
`

var log = log2.NewStderr(log2.LDebug)

type command func(ctx context.Context) error

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := cmdline.String("config", "", "path to HCL config, optional")
	devicePath := cmdline.String("device", "/dev/ttyAMA0", "serial device of the control board")
	baud := cmdline.Int("baud", 0, "override uart baud rate")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	config := new(state.Config)
	if *configPath != "" {
		config = state.MustReadConfig(log, *configPath)
	}
	if config.Hardware.VMC.UartDevice == "" {
		config.Hardware.VMC.UartDevice = *devicePath
	}
	if *baud != 0 {
		config.Hardware.VMC.UartBaud = *baud
	}

	transport := vmc.NewFileTransport(log)
	if err := transport.Open(config.Hardware.VMC.UartDevice, config.Baud()); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	defer transport.Close()

	engine := vend.NewEngine(log, transport, config.Vend)
	defer engine.Stop()

	reporter := tele.New(log, config.Tele)
	if err := reporter.Init(); err != nil {
		log.Errorf("tele disabled err=%v", errors.ErrorStack(err))
		reporter = nil
	}
	defer reporter.Close()

	ctx := context.Background()
	if err := engine.Probe(ctx); err != nil {
		log.Errorf("probe failed, board may be offline: %v", err)
	}

	cli.MainLoop("vmc-cli", newExecutor(ctx, engine, reporter), completer)
}

func completer(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "probe", Description: "get device id"},
		{Text: "dispense=", Description: "dispense slot with polling"},
		{Text: "status=", Description: "query slot status"},
		{Text: "balance", Description: "query balance"},
		{Text: "clear", Description: "remove fault"},
		{Text: "coinchange", Description: "give coin change"},
		{Text: "changestat", Description: "query coin change status"},
		{Text: "cancel", Description: "cancel cashless payment"},
		{Text: "debit=", Description: "debit N cents"},
		{Text: "pay=", Description: "coin payment N cents"},
		{Text: "age=", Description: "age recognition"},
		{Text: "agecheck", Description: "query age verification"},
		{Text: "loop=", Description: "repeat line N times"},
		{Text: "@", Description: "transmit raw frame, show response"},
	}
	return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
}

func newExecutor(ctx context.Context, engine *vend.Engine, reporter *tele.Tele) func(string) {
	return func(line string) {
		cmds, loopn, err := parseLine(engine, reporter, line)
		if err != nil {
			log.Errorf(errors.ErrorStack(err))
			return
		}
		for i := uint(0); i < loopn; i++ {
			for _, cmd := range cmds {
				if err := cmd(ctx); err != nil {
					log.Errorf(errors.ErrorStack(err))
				}
			}
		}
	}
}

func parseLine(engine *vend.Engine, reporter *tele.Tele, line string) ([]command, uint, error) {
	words := strings.Fields(line)
	loopn := uint(1)
	cmds := make([]command, 0, len(words))
	for _, word := range words {
		switch {
		case word == "help":
			cmds = append(cmds, func(context.Context) error { log.Infof(usage); return nil })
		case strings.HasPrefix(word, "loop="):
			i, err := strconv.ParseUint(word[5:], 10, 32)
			if err != nil {
				return nil, 0, errors.Annotatef(err, "word=%s", word)
			}
			loopn = uint(i)
		default:
			cmd, err := parseCommand(engine, reporter, word)
			if err != nil {
				return nil, 0, err
			}
			cmds = append(cmds, cmd)
		}
	}
	return cmds, loopn, nil
}

func parseCommand(engine *vend.Engine, reporter *tele.Tele, word string) (command, error) {
	switch {
	case word == "log=yes":
		return func(context.Context) error { log.SetLevel(log2.LDebug); return nil }, nil
	case word == "log=no":
		return func(context.Context) error { log.SetLevel(log2.LError); return nil }, nil

	case word == "probe":
		return engine.Probe, nil

	case strings.HasPrefix(word, "dispense="):
		slot, err := parseIntArg(word, 9)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			result := engine.DispenseWater(ctx, slot)
			reporter.ReportDispense(result)
			if result.ErrorCode != 0 {
				reporter.ReportFault(result.ErrorCode, result.ErrorMessage)
			}
			log.Infof("%s", result.String())
			return nil
		}, nil

	case strings.HasPrefix(word, "status="):
		slot, err := parseIntArg(word, 7)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			status, err := engine.QueryStatus(ctx, slot, 1)
			if err != nil {
				return err
			}
			log.Infof("status success=%t code=%02x amount=%d", status.Success, status.ErrorCode, status.Amount)
			return nil
		}, nil

	case word == "balance":
		return func(ctx context.Context) error {
			amount, err := engine.QueryBalance(ctx)
			if err != nil {
				return err
			}
			log.Infof("balance=%s", amount.Format100I())
			return nil
		}, nil

	case word == "clear":
		return logOk("clear", engine.ClearFaults), nil
	case word == "coinchange":
		return logOk("coinchange", engine.CoinChange), nil
	case word == "changestat":
		return logOk("changestat can-refund", engine.QueryCoinChangeStatus), nil
	case word == "cancel":
		return logOk("cancel", engine.CashlessCancel), nil
	case word == "agecheck":
		return logOk("agecheck verified", engine.QueryAgeVerification), nil

	case strings.HasPrefix(word, "debit="):
		cents, err := parseIntArg(word, 6)
		if err != nil {
			return nil, err
		}
		return logOk("debit", func(ctx context.Context) (bool, error) {
			return engine.Debit(ctx, currency.Amount(cents))
		}), nil

	case strings.HasPrefix(word, "pay="):
		cents, err := parseIntArg(word, 4)
		if err != nil {
			return nil, err
		}
		return logOk("pay", func(ctx context.Context) (bool, error) {
			return engine.Payment(ctx, currency.Amount(cents), vmc.PaymentCoin, 0)
		}), nil

	case strings.HasPrefix(word, "age="):
		age, err := parseIntArg(word, 4)
		if err != nil {
			return nil, err
		}
		return logOk("age", func(ctx context.Context) (bool, error) {
			return engine.AgeRecognition(ctx, age)
		}), nil

	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return func(context.Context) error {
			time.Sleep(time.Duration(i) * time.Millisecond)
			return nil
		}, nil

	case word[0] == '@':
		bs, err := hex.DecodeString(word[1:])
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		if len(bs) < 1 {
			return nil, errors.Errorf("raw frame needs at least a command byte: '%s'", word)
		}
		request, err := vmc.NewFrameChecked(vmc.HeaderHost, bs[0], bs[1:])
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return func(ctx context.Context) error {
			response, err := engine.ExecuteCommand(ctx, request, vmc.ModeStatus)
			if err != nil {
				return err
			}
			log.Infof("< %#v", response)
			return nil
		}, nil
	}
	return nil, errors.Errorf("error: invalid command: '%s'", word)
}

func parseIntArg(word string, prefix int) (int, error) {
	i, err := strconv.ParseInt(word[prefix:], 10, 32)
	if err != nil {
		return 0, errors.Annotatef(err, "word=%s", word)
	}
	return int(i), nil
}

func logOk(tag string, f func(ctx context.Context) (bool, error)) command {
	return func(ctx context.Context) error {
		ok, err := f(ctx)
		if err != nil {
			return err
		}
		log.Infof("%s ok=%t", tag, ok)
		return nil
	}
}
