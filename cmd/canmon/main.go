// canmon polls a CAN interface and logs decoded signal values for the
// arbitration ids listed in its configuration file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FabianPetersen/canhal"
)

const (
	_confFileDef = "/etc/canmon.d/signals.yaml"
	_pollDef     = 100
)

func decode(itf *canhal.Interface, sig signalConf) (interface{}, error) {
	switch sig.Type {
	case "int8":
		v, err := itf.RxUnpackInt8(sig.ArbID, sig.Offset)
		return v, err
	case "int16":
		v, err := itf.RxUnpackInt16(sig.ArbID, sig.Offset)
		return v, err
	case "int32":
		v, err := itf.RxUnpackInt32(sig.ArbID, sig.Offset)
		return v, err
	case "fxp16":
		v, err := itf.RxUnpackFXP16(sig.ArbID, sig.Offset)
		return v, err
	case "fxp32":
		v, err := itf.RxUnpackFXP32(sig.ArbID, sig.Offset)
		return v, err
	}

	return nil, fmt.Errorf("unknown signal type %q", sig.Type)
}

func main() {
	logLvl := zap.LevelFlag("loglvl", zapcore.InfoLevel, "log level for zap logger")
	configFile := flag.String("conf", _confFileDef, "path to the configuration file")
	ifName := flag.String("ifname", "", "CAN interface name (overrides configuration)")

	flag.Parse()

	logger, err := newLogger(*logLvl).Build()
	if err != nil {
		log.Fatalf("build log configuration: %v", err)
	}

	sugar := logger.Sugar()

	conf, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	name := conf.Interface
	if *ifName != "" {
		name = *ifName
	}

	poll := conf.PollMs
	if poll <= 0 {
		poll = _pollDef
	}

	opts := []canhal.Option{}
	if conf.StaleMs > 0 {
		opts = append(opts, canhal.WithStaleness(time.Duration(conf.StaleMs)*time.Millisecond))
	}

	itf, err := canhal.Open(name, opts...)
	if err != nil {
		sugar.Fatalw("open CAN interface", "ifname", name, "error", err)
	}

	defer func() {
		_ = itf.Close()
	}()

	c := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(c, os.Interrupt, syscall.SIGHUP)

	go func() {
		<-c
		sugar.Info("CTRL-C received, shutting down... (CTRL-C again to force)")
		close(done)
		<-c
		os.Exit(1)
	}()

	go func() {
		for {
			select {
			case <-done:
				return
			case err := <-itf.Errs():
				sugar.Warnw("bus error", "error", err)
			}
		}
	}()

	ticker := time.NewTicker(time.Duration(poll) * time.Millisecond)
	defer ticker.Stop()

	sugar.Infow("monitoring", "ifname", name, "signals", len(conf.Signals))

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, sig := range conf.Signals {
				fresh, err := itf.RxReceive(sig.ArbID)
				if err != nil {
					sugar.Warnw("receive", "id", fmt.Sprintf("%x", sig.ArbID), "error", err)
					continue
				}

				if !fresh {
					continue
				}

				value, err := decode(itf, sig)
				if err != nil {
					sugar.Warnw("decode", "id", fmt.Sprintf("%x", sig.ArbID), "signal", sig.Label, "error", err)
					continue
				}

				sugar.Infow("signal", "id", fmt.Sprintf("%x", sig.ArbID), "signal", sig.Label, "value", value)
			}
		}
	}
}
