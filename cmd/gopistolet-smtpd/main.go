package main

import (
	"crypto/tls"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/gopistolet/smtpd/helpers"
	"github.com/gopistolet/smtpd/maildirsink"
	"github.com/gopistolet/smtpd/smtp"
	"github.com/gopistolet/smtpd/user"
)

// fileConfig mirrors the on-disk JSON configuration, decoded with
// helpers.DecodeFile the way the teacher's main.go was meant to be
// extended (its own main.go hardcoded Config{Port: 1234}).
type fileConfig struct {
	Domain      string `json:"domain"`
	ServerAgent string `json:"server_agent"`
	Host        string `json:"host"`
	Port        int    `json:"port"`

	Cert string `json:"cert"`
	Key  string `json:"key"`

	TLSRequired     bool `json:"tls_required"`
	AllowNullSender bool `json:"allow_null_sender"`
	MaxMessageSize  int  `json:"max_message_size"`

	UseSPF bool `json:"use_spf"`

	MaildirBase string `json:"maildir_base"`
	UsersFile   string `json:"users_file"`
}

func main() {
	configPath := flag.String("config", "gopistolet-smtpd.json", "path to the JSON configuration file")
	flag.Parse()

	var fc fileConfig
	if err := helpers.DecodeFile(*configPath, &fc); err != nil {
		logrus.WithError(err).Fatal("could not read configuration")
	}

	db, err := user.LoadDB(fc.UsersFile)
	if err != nil {
		logrus.WithError(err).Fatal("could not load user database")
	}

	sink := maildirsink.New(fc.MaildirBase, db, logrus.StandardLogger())

	config := smtp.Config{
		Domain:          fc.Domain,
		ServerAgent:     fc.ServerAgent,
		Host:            fc.Host,
		Port:            fc.Port,
		TLSRequired:     fc.TLSRequired,
		AllowNullSender: fc.AllowNullSender,
		MaxMessageSize:  fc.MaxMessageSize,
		Sink:            sink,
		Log:             logrus.StandardLogger(),
	}

	if fc.Cert != "" && fc.Key != "" {
		cert, err := tls.LoadX509KeyPair(fc.Cert, fc.Key)
		if err != nil {
			logrus.WithError(err).Fatal("could not load TLS certificate")
		}
		config.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	if fc.UseSPF {
		config.SenderPolicy = smtp.SPFSenderPolicy()
	}

	srv := smtp.NewServer(config)
	if err := srv.ListenAndServe(); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
