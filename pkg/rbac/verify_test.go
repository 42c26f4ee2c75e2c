package rbac_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	authv1 "k8s.io/api/authorization/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/ocp-llama/llamactl/pkg/rbac"
)

func TestRBAC(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RBAC Verification Suite")
}

// fakeWithSARResponder answers every SelfSubjectAccessReview, denying the
// resources listed in denied.
func fakeWithSARResponder(denied map[string]bool) *fake.Clientset {
	clientset := fake.NewSimpleClientset()
	clientset.Fake.PrependReactor("create", "selfsubjectaccessreviews",
		func(action k8stesting.Action) (bool, runtime.Object, error) {
			sar := action.(k8stesting.CreateAction).GetObject().(*authv1.SelfSubjectAccessReview)
			result := sar.DeepCopy()
			result.Status.Allowed = !denied[sar.Spec.ResourceAttributes.Resource]
			return true, result, nil
		})
	return clientset
}

var _ = Describe("RBAC Verification", func() {
	Describe("GetRequiredPermissions", func() {
		It("should return non-empty permission list", func() {
			permissions := rbac.GetRequiredPermissions("llm-inference", true)
			Expect(permissions).NotTo(BeEmpty())
		})

		It("should include cluster-scoped namespace permissions", func() {
			permissions := rbac.GetRequiredPermissions("llm-inference", false)

			found := false
			for _, p := range permissions {
				if p.Resource == "namespaces" && p.Namespace == "" {
					found = true
				}
			}
			Expect(found).To(BeTrue())
		})

		It("should include route permissions only when routes are available", func() {
			hasRoutes := func(perms []rbac.RequiredPermission) bool {
				for _, p := range perms {
					if p.APIGroup == "route.openshift.io" {
						return true
					}
				}
				return false
			}

			Expect(hasRoutes(rbac.GetRequiredPermissions("llm-inference", true))).To(BeTrue())
			Expect(hasRoutes(rbac.GetRequiredPermissions("llm-inference", false))).To(BeFalse())
		})

		It("should scope workload permissions to the namespace", func() {
			for _, p := range rbac.GetRequiredPermissions("custom-ns", true) {
				if p.Resource == "namespaces" {
					continue
				}
				Expect(p.Namespace).To(Equal("custom-ns"))
			}
		})
	})

	Describe("CheckPermission", func() {
		It("should report an allowed permission", func() {
			clientset := fakeWithSARResponder(nil)

			allowed, err := rbac.CheckPermission(context.Background(), clientset, rbac.RequiredPermission{
				APIGroup: "apps", Resource: "deployments", Verb: "create", Namespace: "llm-inference",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeTrue())
		})

		It("should report a denied permission", func() {
			clientset := fakeWithSARResponder(map[string]bool{"deployments": true})

			allowed, err := rbac.CheckPermission(context.Background(), clientset, rbac.RequiredPermission{
				APIGroup: "apps", Resource: "deployments", Verb: "create", Namespace: "llm-inference",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())
		})
	})

	Describe("VerifyPermissions", func() {
		It("should pass when everything is allowed", func() {
			clientset := fakeWithSARResponder(nil)

			err := rbac.VerifyPermissions(context.Background(), clientset, "llm-inference", true)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should aggregate missing permissions into one error", func() {
			clientset := fakeWithSARResponder(map[string]bool{
				"deployments":            true,
				"persistentvolumeclaims": true,
			})

			err := rbac.VerifyPermissions(context.Background(), clientset, "llm-inference", false)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("deployments"))
			Expect(err.Error()).To(ContainSubstring("persistentvolumeclaims"))
		})
	})
})
