package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "创建用户，密码通过终端输入",
	RunE:  runCreateUser,
}

func init() {
	rootCmd.AddCommand(createUserCmd)

	createUserCmd.Flags().String("username", "", "用户名")
	createUserCmd.Flags().String("full-name", "", "姓名")
	createUserCmd.Flags().String("email", "", "邮箱")
	createUserCmd.Flags().String("role", string(domain.RoleUser), "角色 (user, admin, super_admin)")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")
}

func parseRole(s string) (domain.Role, error) {
	switch r := domain.Role(s); r {
	case domain.RoleUser, domain.RoleAdmin, domain.RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("未知的角色: %s", s)
}

// readPassword 在终端中不回显地读取密码，标准输入不是终端时按行读取
func readPassword(prompt string, in *os.File, out io.Writer) (string, error) {
	fmt.Fprint(out, prompt)
	defer fmt.Fprintln(out)

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	fullName, _ := cmd.Flags().GetString("full-name")
	email, _ := cmd.Flags().GetString("email")
	roleFlag, _ := cmd.Flags().GetString("role")

	role, err := parseRole(roleFlag)
	if err != nil {
		return err
	}
	if fullName == "" {
		fullName = username
	}

	password, err := readPassword("密码: ", os.Stdin, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("密码至少需要 8 个字符")
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		confirm, err := readPassword("确认密码: ", os.Stdin, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if confirm != password {
			return errors.New("两次输入的密码不一致")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     fullName,
		Email:        email,
		Role:         role,
	}
	if err := e.repo.CreateUser(cmd.Context(), user); err != nil {
		return fmt.Errorf("无法创建用户: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "已创建用户 %s (id=%d, role=%s)\n", user.Username, user.ID, user.Role)
	return nil
}
