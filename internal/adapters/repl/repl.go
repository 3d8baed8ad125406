package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

// Run starts the interactive reception console. At most one reception session
// is open at a time; it is dropped when the console exits.
func Run(ctx context.Context, svc app.ApplicationService, op core.Operator, reader *bufio.Reader) {
	fmt.Println("Reception console")
	fmt.Printf("Operator: %s\n", op.Name)
	fmt.Println("Type /help for commands.")
	fmt.Println(strings.Repeat("-", 70))

	errExit := fmt.Errorf("exit")
	token := ""

	dispatch := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "orders":
			filter := core.PurchaseOrderFilter{}
			if len(args) > 0 {
				filter.Status = core.POStatus(strings.ToLower(args[0]))
			}
			result, err := svc.ListPurchaseOrders(ctx, filter)
			if err != nil {
				return err
			}
			printOrders(result)

		case "order":
			id, err := intArg(args, 0, "/order <id>")
			if err != nil {
				return err
			}
			result, err := svc.GetPurchaseOrder(ctx, id)
			if err != nil {
				return err
			}
			printOrderDetail(result.Order)

		case "new-order":
			if len(args) < 1 {
				fmt.Println("Usage: /new-order <supplier>")
				return nil
			}
			handleNewOrder(ctx, reader, svc, op, strings.Join(args, " "))

		case "advance":
			id, err := intArg(args, 0, "/advance <id>")
			if err != nil {
				return err
			}
			result, err := svc.AdvancePurchaseOrder(ctx, op, id)
			if err != nil {
				return err
			}
			fmt.Printf("Order %s is now %s.\n", result.Order.Code, result.Order.Status)

		case "awaiting":
			result, err := svc.ListAwaitingParts(ctx)
			if err != nil {
				return err
			}
			printWorkOrders(result)

		case "stock":
			result, err := svc.GetStockLevels(ctx)
			if err != nil {
				return err
			}
			printStockLevels(result)

		case "open":
			if token != "" {
				fmt.Println("A reception is already open. /commit or /cancel it first.")
				return nil
			}
			id, err := intArg(args, 0, "/open <order-id>")
			if err != nil {
				return err
			}
			sess, err := svc.OpenReception(ctx, op, id)
			if err != nil {
				return err
			}
			token = sess.Token
			printSession(sess)

		case "show":
			if token == "" {
				fmt.Println("No reception open. Use /open <order-id>.")
				return nil
			}
			sess, err := svc.GetReception(ctx, token)
			if err != nil {
				if app.IsSessionNotFound(err) {
					token = ""
				}
				return err
			}
			printSession(sess)

		case "recv", "alloc", "max", "tostock":
			if token == "" {
				fmt.Println("No reception open. Use /open <order-id>.")
				return nil
			}
			edit, err := parseEdit(cmd, args)
			if err != nil {
				return err
			}
			sess, err := svc.EditReception(ctx, token, edit)
			if err != nil {
				if app.IsSessionNotFound(err) {
					token = ""
				}
				return err
			}
			printSession(sess)

		case "commit":
			if token == "" {
				fmt.Println("No reception open. Use /open <order-id>.")
				return nil
			}
			result, err := svc.CommitReception(ctx, op, token)
			if result != nil {
				token = ""
				printCommit(result)
			} else if app.IsSessionNotFound(err) {
				token = ""
			}
			return err

		case "cancel":
			if token == "" {
				return nil
			}
			err := svc.CancelReception(ctx, token)
			token = ""
			if err == nil {
				fmt.Println("Reception cancelled. Nothing was written.")
			}
			return err

		case "help", "h":
			printHelp()

		case "exit", "quit", "e", "q":
			return errExit

		default:
			fmt.Printf("Unknown command: /%s  (type /help for all commands)\n", cmd)
		}
		return nil
	}

	for {
		fmt.Print("\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				break
			}
			continue
		}
		if !strings.HasPrefix(input, "/") {
			fmt.Println("Commands start with /. Type /help.")
			continue
		}
		if err := dispatch(input); err != nil {
			if err == errExit {
				break
			}
			fmt.Printf("Error: %v\n", err)
		}
	}

	if token != "" {
		_ = svc.CancelReception(ctx, token)
	}
	fmt.Println("Goodbye!")
}

// parseEdit turns a console command into a reception edit.
func parseEdit(cmd string, args []string) (core.Edit, error) {
	switch cmd {
	case "recv":
		line, err := intArg(args, 0, "/recv <line> <qty>")
		if err != nil {
			return core.Edit{}, err
		}
		qty, err := intArg(args, 1, "/recv <line> <qty>")
		if err != nil {
			return core.Edit{}, err
		}
		return core.Edit{Kind: core.EditSetReceived, LineID: line, Quantity: qty}, nil

	case "alloc":
		const usage = "/alloc <line> <wo-id> <qty>"
		line, err := intArg(args, 0, usage)
		if err != nil {
			return core.Edit{}, err
		}
		wo, err := intArg(args, 1, usage)
		if err != nil {
			return core.Edit{}, err
		}
		qty, err := intArg(args, 2, usage)
		if err != nil {
			return core.Edit{}, err
		}
		return core.Edit{Kind: core.EditSetAllocation, LineID: line, WorkOrderID: wo, Quantity: qty}, nil

	case "max":
		line, err := intArg(args, 0, "/max <line> <wo-id>")
		if err != nil {
			return core.Edit{}, err
		}
		wo, err := intArg(args, 1, "/max <line> <wo-id>")
		if err != nil {
			return core.Edit{}, err
		}
		return core.Edit{Kind: core.EditAllocateMax, LineID: line, WorkOrderID: wo}, nil

	case "tostock":
		line, err := intArg(args, 0, "/tostock <line>")
		if err != nil {
			return core.Edit{}, err
		}
		return core.Edit{Kind: core.EditAllocateAllToStock, LineID: line}, nil
	}
	return core.Edit{}, fmt.Errorf("unknown edit command %q", cmd)
}

func intArg(args []string, i int, usage string) (int, error) {
	if i >= len(args) {
		return 0, errors.New("usage: " + usage)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number (usage: %s)", args[i], usage)
	}
	return n, nil
}
