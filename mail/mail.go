package mail

import (
	"errors"
	"fmt"
	"minter/config"
	"minter/log"
	"minter/token"
	"runtime/debug"
	"strings"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/dm"

	eParser "github.com/go-errors/errors"
)

var dmClient *dm.Client
var enabled bool

// Init inits aliyun mail config.
func Init(enableMail bool) {
	var err error

	enabled = enableMail
	if !enableMail {
		return
	}

	if err := config.LoadAliyunMailConfig(); err != nil {
		panic(err)
	}

	mailCfg := config.GetAliyunMailConfig()

	dmClient, err = dm.NewClientWithAccessKey(
		mailCfg.Region,
		mailCfg.AccessKeyID,
		mailCfg.AccessKeySecret)

	if err != nil {
		panic(err)
	}
}

// AlertIfErr captures paniced error, sends mail and panics again
// so the process still exits with failure.
func AlertIfErr() {
	if !enabled {
		return
	}

	if r := recover(); r != nil {
		err := recoveredErr(r)
		err = errors.New(eParser.Wrap(err, 0).ErrorStack())
		log.Error.Println(err)
		SendNotify("Error Detected", err.Error())
		panic(r)
	}
}

func recoveredErr(r interface{}) error {
	switch t := r.(type) {
	case string:
		return errors.New(t)
	case error:
		return t
	default:
		return fmt.Errorf("unknown error: %v", t)
	}
}

// SendRunReport mails the report of a finished run.
func SendRunReport(r *token.Run) {
	subject := "Mint finished"
	if !r.Succeeded() {
		subject = "Mint failed"
	}

	SendNotify(subject, strings.Join(r.Lines(), "\n"))
}

// SendNotify sends mail to configured receivers.
func SendNotify(subject string, content string) {
	if !enabled {
		return
	}

	if content == "" {
		log.Printf("Mail content cannot be empty\n")
		debug.PrintStack()
		return
	}

	mailCfg := config.GetAliyunMailConfig()

	req := dm.CreateSingleSendMailRequest()
	req.AccountName = mailCfg.AccountName
	req.ReplyToAddress = requests.NewBoolean(false)
	req.AddressType = requests.NewInteger(1)
	req.FromAlias = fromAlias(config.GetLabel())
	req.Subject = subject
	req.TextBody = content
	req.ToAddress = strings.Join(mailCfg.Receiver, ",")

	_, err := dmClient.SingleSendMail(req)

	if err != nil {
		log.Error.Printf("Failed to send mail: %v\n", err)
	}
}

func fromAlias(label string) string {
	if label != "" {
		return fmt.Sprintf("[%s]-minter", label)
	}
	return "minter"
}
